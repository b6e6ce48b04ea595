package e2etesting

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tech-arch1tect/votegate/app"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/internal/options"
	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/tech-arch1tect/votegate/testutils"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type E2EApp struct {
	App              *app.App
	BaseURL          string
	Config           *config.Config
	DB               *gorm.DB
	Clock            *testutils.Clock
	Notifications    *RecordingNotifier
	CoverageTracker  *CoverageTracker
	readinessTimeout time.Duration
}

type TestConfig struct {
	OverrideConfig func(*config.Config)
	// Codes replaces the random code source so tests can predict codes.
	Codes            otp.CodeSource
	StartTime        time.Time
	EnableCoverage   bool
	ExcludePatterns  []string
	ReadinessTimeout time.Duration
}

type HTTPClient struct {
	Client  *http.Client
	BaseURL string
}

func NewHTTPClient(e2eApp *E2EApp) *HTTPClient {
	return &HTTPClient{
		Client:  &http.Client{Timeout: 10 * time.Second},
		BaseURL: e2eApp.BaseURL,
	}
}

func BuildTestApp(testConfig *TestConfig) (*E2EApp, error) {
	if testConfig == nil {
		testConfig = &TestConfig{}
	}

	cfg := testutils.GetTestConfig()
	if testConfig.OverrideConfig != nil {
		testConfig.OverrideConfig(cfg)
	}

	start := testConfig.StartTime
	if start.IsZero() {
		start = testutils.FixedTime
	}
	clock := testutils.NewClock(start)
	notifier := NewRecordingNotifier()

	fxOpts := []fx.Option{
		fx.Provide(func() otp.Clock { return clock }),
		fx.Provide(func() otp.Notifier { return notifier }),
	}
	if testConfig.Codes != nil {
		codes := testConfig.Codes
		fxOpts = append(fxOpts, fx.Provide(func() otp.CodeSource { return codes }))
	}

	builtApp, err := app.New(
		options.WithConfig(cfg),
		options.WithMetrics(),
		options.WithVotingPass(),
		options.WithRateLimit(),
		options.WithFxOptions(fxOpts...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build test app: %w", err)
	}

	readinessTimeout := testConfig.ReadinessTimeout
	if readinessTimeout == 0 {
		readinessTimeout = 5 * time.Second
	}

	e2eApp := &E2EApp{
		App:              builtApp,
		Config:           cfg,
		DB:               builtApp.DB(),
		Clock:            clock,
		Notifications:    notifier,
		readinessTimeout: readinessTimeout,
	}

	if testConfig.EnableCoverage {
		e2eApp.CoverageTracker = NewCoverageTracker()
		for _, pattern := range testConfig.ExcludePatterns {
			e2eApp.CoverageTracker.AddExcludePattern(pattern)
		}
		if echoServer := builtApp.Server(); echoServer != nil {
			echoServer.Use(e2eApp.CoverageTracker.TrackingMiddleware())
		}
	}

	return e2eApp, nil
}

func (e *E2EApp) Start(ctx context.Context) error {
	if e.App == nil {
		return fmt.Errorf("application not built - call BuildTestApp first")
	}

	if err := e.App.StartTest(); err != nil {
		return fmt.Errorf("failed to start test app: %w", err)
	}

	if err := e.waitForListener(ctx); err != nil {
		return fmt.Errorf("server failed to become ready: %w", err)
	}

	e.BaseURL = fmt.Sprintf("http://%s", e.App.Server().ListenerAddr().String())

	if e.CoverageTracker != nil {
		e.CoverageTracker.RegisterRoutes(e.App.Server())
	}

	return nil
}

func (e *E2EApp) waitForListener(ctx context.Context) error {
	echoServer := e.App.Server()
	if echoServer == nil {
		return fmt.Errorf("echo server not initialized")
	}

	deadline := time.After(e.readinessTimeout)
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if addr := echoServer.ListenerAddr(); addr != nil {
			conn, err := net.DialTimeout("tcp", addr.String(), 100*time.Millisecond)
			if err == nil {
				conn.Close()
				return nil
			}
		}
		select {
		case <-ticker.C:
		case <-deadline:
			return fmt.Errorf("timeout after %s waiting for HTTP listener", e.readinessTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *E2EApp) Stop() {
	if e.App != nil {
		e.App.StopTest()
	}
}

func (e *E2EApp) AssertMinimumCoverage(t interface {
	Fatalf(format string, args ...any)
}, minPercent float64) {
	if e.CoverageTracker == nil {
		t.Fatalf("Coverage tracking not enabled")
		return
	}
	stats := e.CoverageTracker.GetStats()
	if stats.Coverage < minPercent {
		e.CoverageTracker.PrintReport()
		t.Fatalf("Coverage %.1f%% is below minimum required %.1f%%", stats.Coverage, minPercent)
	}
}
