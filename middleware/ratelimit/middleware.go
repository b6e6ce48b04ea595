package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
)

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
	Logger         *logging.Service
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			now := time.Now()
			resetTime := now.Add(cfg.Period)

			count, existingResetTime, exists, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.logStoreError("get", key, err)
				return next(c)
			}
			if exists {
				resetTime = existingResetTime
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				if cfg.Logger != nil {
					cfg.Logger.Warn("rate limit reached",
						zap.String("key", key),
						zap.Int("limit", cfg.Rate),
						zap.String("path", c.Path()))
				}
				return cfg.OnLimitReached(c)
			}

			newCount := count + 1
			if cfg.CountMode == CountAll {
				if newCount, err = cfg.Store.Increment(ctx, key, resetTime); err != nil {
					cfg.logStoreError("increment", key, err)
					return next(c)
				}
			}

			setHeaders(c, cfg.Rate, max(cfg.Rate-newCount, 0), resetTime)

			err = next(c)

			if cfg.CountMode != CountAll {
				statusCode := c.Response().Status
				if he, ok := err.(*echo.HTTPError); ok {
					statusCode = he.Code
				}

				shouldCount := false
				switch cfg.CountMode {
				case CountFailures:
					shouldCount = statusCode >= 400
				case CountSuccess:
					shouldCount = statusCode < 400
				}

				if shouldCount {
					if _, serr := cfg.Store.Increment(ctx, key, resetTime); serr != nil {
						cfg.logStoreError("increment", key, serr)
					}
				}
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Response().Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func (cfg *Config) logStoreError(op, key string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Error("rate limit store failed, allowing request",
			zap.String("operation", op),
			zap.String("key", key),
			zap.Error(err))
	}
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return "rate_limit:" + realIP
}

// ScopedKeyGenerator keeps separate counters per endpoint for the same client.
func ScopedKeyGenerator(scope string) func(c echo.Context) string {
	return func(c echo.Context) string {
		realIP := c.RealIP()
		if realIP == "" || realIP == "unknown" {
			realIP = "fallback"
		}
		return fmt.Sprintf("rate_limit:%s:%s", scope, realIP)
	}
}

func SecureKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	userAgent := c.Request().Header.Get("User-Agent")

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	uaHash := simpleHash(userAgent)

	return fmt.Sprintf("rate_limit:%s:%s", realIP, uaHash)
}

func simpleHash(s string) string {
	if len(s) == 0 {
		return "none"
	}

	hash := uint32(0)
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}

	return fmt.Sprintf("%x", hash%0xFFFFFF)
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
}

// NewStore falls back to memory when no redis client is given.
func NewStore(rateLimitConfig *config.RateLimitConfig, client redis.UniversalClient) Store {
	switch rateLimitConfig.Store {
	case config.StoreRedis:
		if client != nil {
			return NewRedisStore(client, "votegate:")
		}
		return NewMemoryStore()
	default:
		return NewMemoryStore()
	}
}

func WithConfig(cfg *Config) echo.MiddlewareFunc {
	return Middleware(cfg)
}
