package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded once from the environment.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Scylla        ScyllaConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	Paystack      PaystackConfig
	Verification  VerificationConfig
	OAuth         OAuthConfig
	KMS           KMSConfig
	Hashing       HashingConfig
	Notifications NotificationsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	AutoCertDir  string
	Domain       string
	Email        string
	CertFile     string
	KeyFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type ScyllaConfig struct {
	Hosts       []string
	Keyspace    string
	Consistency string
	Timeout     time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	EventTopic string
}

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	AuditIndex string
}

type ClickhouseConfig struct {
	URL        string
	Username   string
	Password   string
	Database   string
	FlushEvery time.Duration
	BatchSize  int
}

// PaystackConfig configures the payment initialization provider.
type PaystackConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// VerificationConfig carries the two timer policies of the OTP sub-flow.
// The resend cooldown and the code expiry are independent values on purpose;
// call sites configure them per flow.
type VerificationConfig struct {
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	CodeLength      int
	AdminCodeLength int
	MaxAttempts     int
	JWTSecret       string
	TokenTTL        time.Duration
}

type OAuthConfig struct {
	GoogleClientID    string
	GoogleRedirectURL string
	ShopifyAPIKey     string
	ShopifyScopes     string
	ShopifyRedirect   string
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type HashingConfig struct {
	Argon2MemoryCost  int
	Argon2TimeCost    int
	Argon2Parallelism int
}

type NotificationsConfig struct {
	RefreshEvery time.Duration
}

var (
	globalConfig *Config
	once         sync.Once
)

// LoadConfig reads configuration from the environment (and an optional .env
// file) exactly once and caches the result.
func LoadConfig() *Config {
	once.Do(func() {
		// Best-effort: a missing .env file is normal in production.
		_ = godotenv.Load()

		globalConfig = &Config{
			Environment: getEnv("ENVIRONMENT", "development"),
			Server: ServerConfig{
				Host:         getEnv("SERVER_HOST", "0.0.0.0"),
				Port:         getEnvInt("SERVER_PORT", 8080),
				TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
				EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     getEnvBool("SERVER_AUTOCERT", false),
				AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/cache/autocert"),
				Domain:       getEnv("SERVER_DOMAIN", ""),
				Email:        getEnv("SERVER_ACME_EMAIL", ""),
				CertFile:     getEnv("SERVER_CERT_FILE", ""),
				KeyFile:      getEnv("SERVER_KEY_FILE", ""),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "console"),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
			Scylla: ScyllaConfig{
				Hosts:       splitAndTrim(getEnv("SCYLLA_HOSTS", "localhost:9042")),
				Keyspace:    getEnv("SCYLLA_KEYSPACE", "onboarding"),
				Consistency: getEnv("SCYLLA_CONSISTENCY", "quorum"),
				Timeout:     getEnvDuration("SCYLLA_TIMEOUT", 10*time.Second),
			},
			Kafka: KafkaConfig{
				Brokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "localhost:9092")),
				EventTopic: getEnv("KAFKA_EVENT_TOPIC", "onboarding-events"),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
				Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
				AuditIndex: getEnv("ELASTICSEARCH_AUDIT_INDEX", "store-audits"),
			},
			Clickhouse: ClickhouseConfig{
				URL:        getEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Username:   getEnv("CLICKHOUSE_USERNAME", "default"),
				Password:   getEnv("CLICKHOUSE_PASSWORD", ""),
				Database:   getEnv("CLICKHOUSE_DATABASE", "onboarding"),
				FlushEvery: getEnvDuration("CLICKHOUSE_FLUSH_EVERY", 5*time.Second),
				BatchSize:  getEnvInt("CLICKHOUSE_BATCH_SIZE", 500),
			},
			Paystack: PaystackConfig{
				BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
				SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
				Timeout:   getEnvDuration("PAYSTACK_TIMEOUT", 15*time.Second),
			},
			Verification: VerificationConfig{
				CodeTTL:         getEnvDuration("VERIFICATION_CODE_TTL", 300*time.Second),
				ResendCooldown:  getEnvDuration("VERIFICATION_RESEND_COOLDOWN", 60*time.Second),
				CodeLength:      getEnvInt("VERIFICATION_CODE_LENGTH", 4),
				AdminCodeLength: getEnvInt("VERIFICATION_ADMIN_CODE_LENGTH", 6),
				MaxAttempts:     getEnvInt("VERIFICATION_MAX_ATTEMPTS", 5),
				JWTSecret:       getEnv("VERIFICATION_JWT_SECRET", "dev-only-secret"),
				TokenTTL:        getEnvDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			},
			OAuth: OAuthConfig{
				GoogleClientID:    getEnv("GOOGLE_CLIENT_ID", ""),
				GoogleRedirectURL: getEnv("GOOGLE_REDIRECT_URL", ""),
				ShopifyAPIKey:     getEnv("SHOPIFY_API_KEY", ""),
				ShopifyScopes:     getEnv("SHOPIFY_SCOPES", "read_products,read_themes"),
				ShopifyRedirect:   getEnv("SHOPIFY_REDIRECT_URL", ""),
			},
			KMS: KMSConfig{
				Enabled: getEnvBool("KMS_ENABLED", false),
				KeyID:   getEnv("KMS_KEY_ID", ""),
				Region:  getEnv("AWS_REGION", "us-east-1"),
			},
			Hashing: HashingConfig{
				Argon2MemoryCost:  getEnvInt("ARGON2_MEMORY_COST", 65536),
				Argon2TimeCost:    getEnvInt("ARGON2_TIME_COST", 3),
				Argon2Parallelism: getEnvInt("ARGON2_PARALLELISM", 4),
			},
			Notifications: NotificationsConfig{
				RefreshEvery: getEnvDuration("NOTIFICATIONS_REFRESH_EVERY", 30*time.Second),
			},
		}
	})

	return globalConfig
}

// Get returns the cached configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		return LoadConfig()
	}
	return globalConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
