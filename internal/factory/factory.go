package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"golang.org/x/sync/errgroup"

	"onboarding-service/internal/analytics"
	"onboarding-service/internal/audit"
	"onboarding-service/internal/client"
	"onboarding-service/internal/config"
	"onboarding-service/internal/encryption"
	"onboarding-service/internal/hashing"
	"onboarding-service/internal/kvstore"
	"onboarding-service/internal/payment"
	redisrepo "onboarding-service/internal/repository/redis"
	"onboarding-service/internal/repository/scylla"
	"onboarding-service/internal/service"
	"onboarding-service/internal/tls"
	"onboarding-service/internal/token"
	"onboarding-service/internal/util"
	"onboarding-service/internal/verification"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	paystackClient   *client.PaystackClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	tokenIssuer       *token.Issuer

	// Storage
	slotStore         kvstore.Store
	notificationCache *kvstore.NotificationCache
	refresher         *kvstore.Refresher
	sessionCache      *redisrepo.SessionCache
	otpCache          *redisrepo.OTPCache
	rateLimitCache    *redisrepo.RateLimitCache
	orderRepository   *scylla.OrderRepository

	// Services
	recorder            *analytics.Recorder
	verificationService *verification.Service
	paymentService      *payment.Service
	orderService        *service.OrderService
	onboardingService   *service.OnboardingService
	authService         *service.AuthService
	auditService        *audit.Service

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if redisClient, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = redisClient
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if scyllaClient, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = scyllaClient
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch
	if esClient, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = esClient
		if err := f.esClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	// ClickHouse
	if chClient, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = chClient
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
		}
	}

	// Paystack
	f.paystackClient = client.NewPaystackClient(f.config, util.Get())

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, encryption, and token managers
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			util.Warn("Failed to load AWS config - KMS disabled for this run", util.ErrorField(err))
		} else {
			kmsClient = kms.NewFromConfig(awsCfg)
		}
	}

	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)
	f.tokenIssuer = token.NewIssuer(f.config.Verification.JWTSecret, f.config.Verification.TokenTTL)

	if f.config.IsProduction() {
		f.hasher.StartPepperRotation()
	}

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
	)
}

// ==============================
// Storage accessors
// ==============================

func (f *Factory) SlotStore() kvstore.Store {
	if f.slotStore == nil {
		if f.redisClient != nil {
			f.slotStore = kvstore.NewRedisStore(f.redisClient)
		} else {
			util.Warn("Redis unavailable, durable slots degraded to in-memory store")
			f.slotStore = kvstore.NewMemoryStore()
		}
	}
	return f.slotStore
}

func (f *Factory) NotificationCache() *kvstore.NotificationCache {
	if f.notificationCache == nil {
		f.notificationCache = kvstore.NewNotificationCache(f.SlotStore())
	}
	return f.notificationCache
}

func (f *Factory) NotificationRefresher() *kvstore.Refresher {
	if f.refresher == nil {
		f.refresher = kvstore.NewRefresher(f.NotificationCache(), f.config.Notifications.RefreshEvery)
	}
	return f.refresher
}

func (f *Factory) SessionCache() *redisrepo.SessionCache {
	if f.sessionCache == nil {
		f.sessionCache = redisrepo.NewSessionCache(f.redisClient)
	}
	return f.sessionCache
}

func (f *Factory) OTPCache() *redisrepo.OTPCache {
	if f.otpCache == nil {
		f.otpCache = redisrepo.NewOTPCache(f.redisClient)
	}
	return f.otpCache
}

func (f *Factory) RateLimitCache() *redisrepo.RateLimitCache {
	if f.rateLimitCache == nil {
		f.rateLimitCache = redisrepo.NewRateLimitCache(f.redisClient)
	}
	return f.rateLimitCache
}

func (f *Factory) OrderRepository() *scylla.OrderRepository {
	if f.orderRepository == nil {
		f.orderRepository = scylla.NewOrderRepository(f.scyllaClient, util.Get())
	}
	return f.orderRepository
}

// ==============================
// Service accessors
// ==============================

func (f *Factory) Recorder() *analytics.Recorder {
	if f.recorder == nil {
		f.recorder = analytics.NewRecorder(f.config, f.kafkaProducer, f.clickhouseClient)
	}
	return f.recorder
}

func (f *Factory) VerificationService() *verification.Service {
	if f.verificationService == nil {
		f.verificationService = verification.NewService(
			f.config,
			f.OTPCache(),
			f.hasher,
			f.tokenIssuer,
			f.SlotStore(),
			nil,
		)
	}
	return f.verificationService
}

func (f *Factory) PaymentService() *payment.Service {
	if f.paymentService == nil {
		f.paymentService = payment.NewService(f.paystackClient)
	}
	return f.paymentService
}

func (f *Factory) OrderService() *service.OrderService {
	if f.orderService == nil {
		f.orderService = service.NewOrderService(
			f.OrderRepository(),
			f.VerificationService(),
			f.PaymentService(),
			f.encryptionManager,
			f.Recorder(),
		)
	}
	return f.orderService
}

func (f *Factory) OnboardingService() *service.OnboardingService {
	if f.onboardingService == nil {
		f.onboardingService = service.NewOnboardingService(f.SessionCache(), f.SlotStore(), f.Recorder())
	}
	return f.onboardingService
}

func (f *Factory) AuthService() *service.AuthService {
	if f.authService == nil {
		f.authService = service.NewAuthService(f.config)
	}
	return f.authService
}

func (f *Factory) AuditService() *audit.Service {
	if f.auditService == nil {
		f.auditService = audit.NewService(f.esClient, f.config)
	}
	return f.auditService
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

// StartBackground launches the periodic workers: the analytics flusher
// and the notification cache refresher.
func (f *Factory) StartBackground() {
	f.Recorder().Start()
	f.NotificationRefresher().Start()
	util.Info("Background workers started",
		util.Duration("analytics_flush", f.config.Clickhouse.FlushEvery),
		util.Duration("notification_refresh", f.config.Notifications.RefreshEvery),
	)
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	var (
		mu           sync.Mutex
		healthErrors = make(map[string]error)
	)
	record := func(name string, err error) {
		mu.Lock()
		healthErrors[name] = err
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if f.redisClient == nil {
			record("redis", fmt.Errorf("redis client not initialized"))
		} else if err := f.redisClient.HealthCheck(ctx); err != nil {
			record("redis", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.scyllaClient == nil {
			record("scylla", fmt.Errorf("scylla client not initialized"))
		} else if err := f.scyllaClient.HealthCheck(); err != nil {
			record("scylla", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.esClient == nil {
			record("elasticsearch", fmt.Errorf("elasticsearch client not initialized"))
		} else if err := f.esClient.HealthCheck(); err != nil {
			record("elasticsearch", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.clickhouseClient == nil {
			record("clickhouse", fmt.Errorf("clickhouse client not initialized"))
		} else if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			record("clickhouse", err)
		}
		return nil
	})

	g.Go(func() error {
		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
				record("kafka", err)
			}
		}
		return nil
	})

	_ = g.Wait()

	if f.hasher == nil {
		healthErrors["hasher"] = fmt.Errorf("hasher not initialized")
	}
	if f.encryptionManager == nil {
		healthErrors["encryption"] = fmt.Errorf("encryption manager not initialized")
	}

	return healthErrors
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.refresher != nil {
			f.refresher.Stop()
		}
		if f.recorder != nil {
			f.recorder.Stop()
		}
		if f.hasher != nil {
			f.hasher.Stop()
		}
		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		util.Info("Factory shutdown complete")
	})
	return nil
}
