package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"onboarding-service/internal/config"
	"onboarding-service/internal/util"
)

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Hosts...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = parseConsistency(scyllaConfig.Consistency)
	cluster.Timeout = scyllaConfig.Timeout
	cluster.ConnectTimeout = scyllaConfig.Timeout
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("hosts", scyllaConfig.Hosts),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}, nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	if err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName); err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func parseConsistency(name string) gocql.Consistency {
	switch name {
	case "one":
		return gocql.One
	case "local_quorum":
		return gocql.LocalQuorum
	case "all":
		return gocql.All
	default:
		return gocql.Quorum
	}
}
