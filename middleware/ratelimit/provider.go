package ratelimit

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Limiters struct {
	Issue  echo.MiddlewareFunc
	Verify echo.MiddlewareFunc
}

func ProvideRedisClient(cfg *config.Config, logger *logging.Service) redis.UniversalClient {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Store != config.StoreRedis {
		return nil
	}

	if logger != nil {
		logger.Info("rate limit counters stored in redis", zap.String("addr", cfg.Redis.Addr))
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

type StoreParams struct {
	fx.In

	Config *config.Config
	Redis  redis.UniversalClient `optional:"true"`
}

func ProvideRateLimitStore(p StoreParams) Store {
	return NewStore(&p.Config.RateLimit, p.Redis)
}

func ProvideLimiters(cfg *config.Config, store Store, logger *logging.Service) *Limiters {
	if !cfg.RateLimit.Enabled {
		return &Limiters{}
	}

	return &Limiters{
		Issue: Middleware(&Config{
			Store:        store,
			Rate:         cfg.RateLimit.IssueRate,
			Period:       cfg.RateLimit.Period,
			CountMode:    CountAll,
			KeyGenerator: ScopedKeyGenerator("otp_issue"),
			Logger:       logger,
		}),
		Verify: Middleware(&Config{
			Store:        store,
			Rate:         cfg.RateLimit.VerifyRate,
			Period:       cfg.RateLimit.Period,
			CountMode:    CountFailures,
			KeyGenerator: ScopedKeyGenerator("otp_verify"),
			Logger:       logger,
		}),
	}
}

func registerClose(lc fx.Lifecycle, store Store, client redis.UniversalClient) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if ms, ok := store.(*MemoryStore); ok {
				ms.Close()
			}
			if client != nil {
				return client.Close()
			}
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(ProvideRedisClient),
	fx.Provide(ProvideRateLimitStore),
	fx.Provide(ProvideLimiters),
	fx.Invoke(registerClose),
)
