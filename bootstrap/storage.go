package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"ioclens/api"
	"ioclens/config"
	"ioclens/storage"

	"go.uber.org/zap"
)

// postgresRetryDelays are the waits between PostgreSQL connection attempts
var postgresRetryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// InitStore opens the configured database and returns the record store on top of it
func InitStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*storage.SQLStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := InitPostgres(ctx, cfg, sugar)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db, sugar), nil
	default:
		db, err := InitSQLite(cfg.GetSQLitePath(), sugar)
		if err != nil {
			return nil, err
		}
		return storage.NewSQLStore(db, sugar), nil
	}
}

// InitSQLite initializes SQLite connection.
func InitSQLite(path string, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(path, sugar)
	if err != nil {
		printFatal("SQLite Initialization Failed", ClassifySQLiteError(err, path))
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sugar.Infow("SQLite initialized successfully", "path", path)
	return sqlite, nil
}

// InitPostgres connects to PostgreSQL with retry logic.
func InitPostgres(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*storage.Postgres, error) {
	pgCfg := storage.PostgresConfig{
		DSN:             cfg.Storage.Postgres.DSN,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	}
	addr := dsnHost(pgCfg.DSN)

	var (
		db      *storage.Postgres
		lastErr error
	)
	for attempt := 0; attempt <= len(postgresRetryDelays); attempt++ {
		if attempt > 0 {
			delay := postgresRetryDelays[attempt-1]
			sugar.Infow("Retrying PostgreSQL connection",
				"attempt", attempt,
				"max_retries", len(postgresRetryDelays),
				"delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		db, lastErr = storage.NewPostgres(ctx, pgCfg, sugar)
		if lastErr == nil {
			break
		}
		sugar.Warnw("PostgreSQL connection attempt failed",
			"attempt", attempt+1,
			"error", lastErr)
	}

	if lastErr != nil {
		printFatal("PostgreSQL Connection Failed", ClassifyConnectionError(lastErr, "PostgreSQL", addr))
		return nil, fmt.Errorf("failed to connect to PostgreSQL after %d attempts: %w", len(postgresRetryDelays)+1, lastErr)
	}

	sugar.Infow("Connected to PostgreSQL successfully", "host", addr)
	return db, nil
}

// InitRateLimiter connects the shared Redis rate limiter when it is enabled.
// In graceful mode an unreachable Redis leaves the API on its local limiter.
func InitRateLimiter(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*api.RedisRateLimiter, error) {
	redisCfg := cfg.API.RateLimit.Redis
	if !redisCfg.Enabled {
		sugar.Info("Redis rate limiting disabled, using per-process limiter")
		return nil, nil
	}

	limiter := api.NewRedisRateLimiter(redisCfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := limiter.Ping(pingCtx); err != nil {
		_ = limiter.Close()
		if cfg.IsGracefulMode() {
			sugar.Warnw("Redis unavailable, continuing with per-process rate limiter",
				"addr", redisCfg.Addr,
				"error", err)
			return nil, nil
		}
		printFatal("Redis Connection Failed", ClassifyConnectionError(err, "Redis", redisCfg.Addr))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sugar.Infow("Redis rate limiter connected",
		"addr", redisCfg.Addr,
		"limit", redisCfg.Limit,
		"window", redisCfg.Window)
	return limiter, nil
}

// dsnHost returns the host part of a URL style DSN without credentials
func dsnHost(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "(configured dsn)"
	}
	return u.Host
}
