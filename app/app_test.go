package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/internal/options"
	"github.com/tech-arch1tect/votegate/testutils"
)

func buildTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()

	cfg := testutils.GetTestConfig()
	if mutate != nil {
		mutate(cfg)
	}

	app, err := New(options.WithConfig(cfg), options.WithAll())
	require.NoError(t, err)

	require.NoError(t, app.StartTest())
	t.Cleanup(app.StopTest)

	return app
}

func TestApp_Accessors(t *testing.T) {
	app := buildTestApp(t, nil)

	assert.NotNil(t, app.Config())
	assert.Equal(t, "Test Elections", app.Config().App.Name)
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.DB())
	assert.NotNil(t, app.OTP())
	assert.NotNil(t, app.Server())
	assert.Same(t, app.HTTPServer().Echo(), app.Server())
}

func TestApp_Server_NotInitialized(t *testing.T) {
	app := &App{}

	assert.Nil(t, app.Server())
}

func TestApp_Routes(t *testing.T) {
	app := buildTestApp(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"openapi json", http.MethodGet, "/openapi.json", "", http.StatusOK},
		{"openapi yaml", http.MethodGet, "/openapi.yaml", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"issue validation", http.MethodPost, "/api/otp/issue", `{"voter_id":0,"election_id":1}`, http.StatusBadRequest},
		{"verify mismatch", http.MethodPost, "/api/otp/verify", `{"code":"ZZZZZZ"}`, http.StatusUnprocessableEntity},
		{"voting pass without token", http.MethodGet, "/api/voting-pass", "", http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()

			app.Server().ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestApp_ErrorBodies(t *testing.T) {
	app := buildTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()

	app.Server().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error_code"])
	assert.NotEmpty(t, body["message"])
}

func TestApp_DisabledSubsystems(t *testing.T) {
	app := buildTestApp(t, func(cfg *config.Config) {
		cfg.Metrics.Enabled = false
		cfg.VotingPass.Enabled = false
	})

	for _, path := range []string{"/metrics", "/api/voting-pass"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		app.Server().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestApp_StopIsSafeAfterStart(t *testing.T) {
	cfg := testutils.GetTestConfig()
	app, err := NewApp().WithConfig(cfg).Build()
	require.NoError(t, err)

	require.NoError(t, app.Start())
	assert.NotPanics(t, app.Stop)
}
