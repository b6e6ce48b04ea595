package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/votegate/config"
)

func serve(t *testing.T, mw echo.MiddlewareFunc, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/otp/issue", nil)
	req.Header.Set("X-Real-IP", "192.168.1.1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return rec, mw(handler)(c)
}

func ok(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func unprocessable(c echo.Context) error {
	return c.String(http.StatusUnprocessableEntity, "nope")
}

func assertTooManyRequests(t *testing.T, err error) {
	t.Helper()

	require.Error(t, err)
	httpErr, isHTTP := err.(*echo.HTTPError)
	require.True(t, isHTTP, "expected echo.HTTPError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}

func TestMiddleware(t *testing.T) {
	t.Run("basic rate limiting", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 1, Period: time.Minute})

		rec, err := serve(t, mw, ok)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		_, err = serve(t, mw, ok)
		assertTooManyRequests(t, err)
	})

	t.Run("default configuration", func(t *testing.T) {
		cfg := &Config{}
		mw := Middleware(cfg)

		assert.NotNil(t, cfg.Store)
		assert.Equal(t, 10, cfg.Rate)
		assert.Equal(t, time.Minute, cfg.Period)
		assert.Equal(t, CountAll, cfg.CountMode)
		assert.NotNil(t, cfg.KeyGenerator)
		assert.NotNil(t, cfg.OnLimitReached)

		_, err := serve(t, mw, ok)
		assert.NoError(t, err)
	})

	t.Run("headers are set", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 5, Period: time.Minute})

		rec, err := serve(t, mw, ok)

		require.NoError(t, err)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("count all counts failures too", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 2, CountMode: CountAll})

		for i := 0; i < 2; i++ {
			_, err := serve(t, mw, unprocessable)
			require.NoError(t, err)
		}

		_, err := serve(t, mw, unprocessable)
		assertTooManyRequests(t, err)
	})

	t.Run("count failures ignores successful requests", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 1, CountMode: CountFailures})

		for i := 0; i < 3; i++ {
			_, err := serve(t, mw, ok)
			require.NoError(t, err)
		}

		_, err := serve(t, mw, unprocessable)
		require.NoError(t, err)

		_, err = serve(t, mw, ok)
		assertTooManyRequests(t, err)
	})

	t.Run("count failures sees returned http errors", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 1, CountMode: CountFailures})
		failing := func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusBadRequest, "bad")
		}

		_, err := serve(t, mw, failing)
		require.Error(t, err)

		_, err = serve(t, mw, ok)
		assertTooManyRequests(t, err)
	})

	t.Run("count success", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 1, CountMode: CountSuccess})

		_, err := serve(t, mw, unprocessable)
		require.NoError(t, err)

		_, err = serve(t, mw, ok)
		require.NoError(t, err)

		_, err = serve(t, mw, ok)
		assertTooManyRequests(t, err)
	})

	t.Run("custom limit reached handler", func(t *testing.T) {
		called := false
		mw := Middleware(&Config{
			Store: NewMemoryStore(),
			Rate:  1,
			OnLimitReached: func(c echo.Context) error {
				called = true
				return c.String(http.StatusTooManyRequests, "slow down")
			},
		})

		_, err := serve(t, mw, ok)
		require.NoError(t, err)

		rec, err := serve(t, mw, ok)
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("store outage lets requests through", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		mr.Close()

		mw := Middleware(&Config{Store: NewRedisStore(client, ""), Rate: 1})

		for i := 0; i < 3; i++ {
			rec, err := serve(t, mw, ok)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("redis backed limiter", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		mw := Middleware(&Config{Store: NewRedisStore(client, "votegate:"), Rate: 2})

		for i := 0; i < 2; i++ {
			_, err := serve(t, mw, ok)
			require.NoError(t, err)
		}

		_, err := serve(t, mw, ok)
		assertTooManyRequests(t, err)
		assert.True(t, mr.Exists("votegate:rate_limit:192.168.1.1"))
	})
}

func TestKeyGenerators(t *testing.T) {
	e := echo.New()
	newContext := func(ip, ua string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if ip != "" {
			req.Header.Set("X-Real-IP", ip)
		}
		if ua != "" {
			req.Header.Set("User-Agent", ua)
		}
		return e.NewContext(req, httptest.NewRecorder())
	}

	t.Run("default uses the client ip", func(t *testing.T) {
		assert.Equal(t, "rate_limit:192.168.1.1", DefaultKeyGenerator(newContext("192.168.1.1", "")))
	})

	t.Run("scoped keys differ per endpoint", func(t *testing.T) {
		c := newContext("10.0.0.7", "")

		issue := ScopedKeyGenerator("otp_issue")(c)
		verify := ScopedKeyGenerator("otp_verify")(c)

		assert.Equal(t, "rate_limit:otp_issue:10.0.0.7", issue)
		assert.NotEqual(t, issue, verify)
	})

	t.Run("secure key includes user agent hash", func(t *testing.T) {
		withUA := SecureKeyGenerator(newContext("192.168.1.1", "Mozilla/5.0"))
		withoutUA := SecureKeyGenerator(newContext("192.168.1.1", ""))

		assert.Contains(t, withUA, "rate_limit:192.168.1.1:")
		assert.Equal(t, "rate_limit:192.168.1.1:none", withoutUA)
		assert.NotEqual(t, withUA, withoutUA)
	})
}

func TestProvideLimiters(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: false}}

		limiters := ProvideLimiters(cfg, NewMemoryStore(), nil)

		assert.Nil(t, limiters.Issue)
		assert.Nil(t, limiters.Verify)
	})

	t.Run("issue and verify keep separate budgets", func(t *testing.T) {
		cfg := &config.Config{RateLimit: config.RateLimitConfig{
			Enabled:    true,
			IssueRate:  1,
			VerifyRate: 1,
			Period:     time.Minute,
		}}
		limiters := ProvideLimiters(cfg, NewMemoryStore(), nil)

		_, err := serve(t, limiters.Issue, ok)
		require.NoError(t, err)
		_, err = serve(t, limiters.Verify, unprocessable)
		require.NoError(t, err)

		_, err = serve(t, limiters.Issue, ok)
		assertTooManyRequests(t, err)
		_, err = serve(t, limiters.Verify, ok)
		assertTooManyRequests(t, err)
	})

	t.Run("redis client only for redis store", func(t *testing.T) {
		cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: true, Store: config.StoreMemory}}
		assert.Nil(t, ProvideRedisClient(cfg, nil))

		cfg.RateLimit.Store = config.StoreRedis
		cfg.Redis.Addr = "localhost:6379"
		client := ProvideRedisClient(cfg, nil)
		require.NotNil(t, client)
		client.Close()
	})
}
