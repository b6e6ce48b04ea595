package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/votegate/config"
)

func TestService_Observers(t *testing.T) {
	svc := NewService()

	svc.ObserveIssue("success", 10*time.Millisecond)
	svc.ObserveIssue("success", 12*time.Millisecond)
	svc.ObserveIssue("UNIT_MISMATCH", time.Millisecond)
	svc.ObserveVerify("EXPIRED", time.Millisecond)
	svc.ObserveNotify(nil)
	svc.ObserveNotify(errors.New("smtp down"))
	svc.ObserveSweep(3, nil)
	svc.ObserveSweep(0, errors.New("db locked"))

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.issueTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.issueTotal.WithLabelValues("UNIT_MISMATCH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.verifyTotal.WithLabelValues("EXPIRED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.notifyTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.notifyTotal.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(svc.sweptTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.sweepErrors))
	assert.Equal(t, 2, testutil.CollectAndCount(svc.issueDuration))

	families, err := svc.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "votegate_otp_issue_total")
	assert.Contains(t, names, "votegate_otp_swept_records_total")
}

func TestService_PrivateRegistry(t *testing.T) {
	first := NewService()
	second := NewService()

	first.ObserveVerify("success", time.Millisecond)

	assert.NotSame(t, first.Registry(), second.Registry())
	assert.Equal(t, 0, testutil.CollectAndCount(second.verifyTotal))
}

func TestService_Handler(t *testing.T) {
	svc := NewService()
	svc.ObserveIssue("success", time.Millisecond)

	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `votegate_otp_issue_total{outcome="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestService_Middleware(t *testing.T) {
	svc := NewService()
	e := echo.New()
	e.Use(svc.Middleware())
	e.GET("/voters/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.POST("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/voters/1", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/voters/2", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fail", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.httpRequests.WithLabelValues("/voters/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.httpRequests.WithLabelValues("/fail", "POST", "409")))
}

func TestProviders(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: false}}

		svc := ProvideMetricsService(cfg)

		assert.Nil(t, svc)
		assert.Nil(t, ProvideObserver(svc))
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true}}

		svc := ProvideMetricsService(cfg)

		require.NotNil(t, svc)
		assert.NotNil(t, ProvideObserver(svc))
	})
}
