package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/moovi-app/moovi_auth/internal/config"
)

// Resources holds the shared backing services. Either field may be nil in
// development, where the in-memory stores take over.
type Resources struct {
	DB    *pgxpool.Pool
	Cache *redis.Client
}

// Open connects to whatever cfg configures. Postgres is required outside
// development; Redis is required when it backs the rate limiter.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Resources, error) {
	res := &Resources{}

	if cfg.DatabaseURL != "" {
		db, err := NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		res.DB = db
	} else if !cfg.IsDev() {
		return nil, fmt.Errorf("database is required when APP_ENV=%s", cfg.AppEnv)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	if cfg.RedisURL != "" {
		cache, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			res.Close(logger)
			return nil, err
		}
		res.Cache = cache
	} else if cfg.RateLimitStore == config.RateLimitStoreRedis {
		res.Close(logger)
		return nil, errors.New("redis is required when RATE_LIMIT_STORE=redis")
	}
	return res, nil
}

// Close releases every open connection.
func (r *Resources) Close(logger *slog.Logger) {
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if r.DB != nil {
		r.DB.Close()
	}
}
