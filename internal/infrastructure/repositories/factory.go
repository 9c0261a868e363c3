package repositories

import (
	"context"
	"fmt"

	"streampulse/internal/core/ports"
	"streampulse/internal/infrastructure/repositories/memory"
	redisrepo "streampulse/internal/infrastructure/repositories/redis"
	"streampulse/internal/infrastructure/repositories/sqlite"
	"streampulse/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// RepositoryFactory opens the configured report store. An unreachable Redis
// falls back to memory; a broken SQLite file is a startup error.
type RepositoryFactory struct {
	cfg         *config.Config
	driver      string
	redisClient *redis.Client
	sqliteRepo  *sqlite.ReportRepository
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		cfg:    cfg,
		driver: cfg.Storage.Driver,
		logger: logger,
	}

	switch cfg.Storage.Driver {
	case DriverRedis:
		client, err := factory.RedisClient()
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory reports",
				"error", err,
			)
			factory.driver = DriverMemory
		} else {
			factory.redisClient = client
		}
	case DriverSQLite:
		repo, err := sqlite.NewReportRepository(cfg.Storage.SQLitePath, cfg.Storage.MaxReports, cfg.Storage.ReportTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite report store: %w", err)
		}
		factory.sqliteRepo = repo
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	logger.Infow("report storage ready", "driver", factory.driver)
	return factory, nil
}

// Driver is the storage backend actually in use after fallback
func (f *RepositoryFactory) Driver() string {
	return f.driver
}

// RedisClient returns the shared client, connecting on first use. The event
// bus uses it even when reports live elsewhere.
func (f *RepositoryFactory) RedisClient() (*redis.Client, error) {
	if f.redisClient != nil {
		return f.redisClient, nil
	}
	client, err := redisrepo.NewRedisClient(
		f.cfg.Redis.Address,
		f.cfg.Redis.Password,
		f.cfg.Redis.DB,
		f.cfg.Redis.PoolSize,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	f.redisClient = client
	return client, nil
}

func (f *RepositoryFactory) CreateReportRepository() ports.ReportRepository {
	switch {
	case f.driver == DriverSQLite && f.sqliteRepo != nil:
		return f.sqliteRepo
	case f.driver == DriverRedis && f.redisClient != nil:
		return redisrepo.NewRedisReportRepository(f.redisClient, f.cfg.Storage.MaxReports, f.cfg.Storage.ReportTTL)
	default:
		return memory.NewMemoryReportRepository(f.cfg.Storage.MaxReports, f.cfg.Storage.ReportTTL)
	}
}

func (f *RepositoryFactory) Close() error {
	var firstErr error
	if f.sqliteRepo != nil {
		if err := f.sqliteRepo.Close(); err != nil {
			firstErr = err
		}
	}
	if f.redisClient != nil {
		if err := redisrepo.CloseRedisClient(f.redisClient); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HealthCheck pings whichever backends are open
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if f.sqliteRepo != nil {
		if err := f.sqliteRepo.Ping(ctx); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	return nil
}
