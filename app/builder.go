package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/database"
	"github.com/tech-arch1tect/votegate/handlers"
	"github.com/tech-arch1tect/votegate/internal/options"
	"github.com/tech-arch1tect/votegate/middleware/ratelimit"
	"github.com/tech-arch1tect/votegate/server"
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/mail"
	"github.com/tech-arch1tect/votegate/services/metrics"
	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/tech-arch1tect/votegate/services/registry"
	"github.com/tech-arch1tect/votegate/services/votingpass"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	services  map[string]bool
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		services:  make(map[string]bool),
		models:    make([]any, 0),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

// New builds an app from functional options.
func New(opts ...options.Option) (*App, error) {
	return NewApp().WithOptions(opts...).Build()
}

func (b *AppBuilder) WithOptions(opts ...options.Option) *AppBuilder {
	o := options.Apply(opts...)

	if o.Config != nil {
		b.WithConfig(o.Config)
	}
	if o.EnableMail {
		b.WithMail()
	}
	if o.EnableMetrics {
		b.WithMetrics()
	}
	if o.EnableVotingPass {
		b.WithVotingPass()
	}
	if o.EnableRateLimit {
		b.WithRateLimit()
	}
	b.models = append(b.models, o.ExtraModels...)
	b.fxOptions = append(b.fxOptions, o.ExtraFxOptions...)
	return b
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels adds tables to auto-migrate next to the otp and registry tables.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithMail() *AppBuilder {
	b.services["mail"] = true
	return b
}

func (b *AppBuilder) WithMetrics() *AppBuilder {
	b.services["metrics"] = true
	return b
}

func (b *AppBuilder) WithVotingPass() *AppBuilder {
	b.services["votingpass"] = true
	return b
}

func (b *AppBuilder) WithRateLimit() *AppBuilder {
	b.services["ratelimit"] = true
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil {
		b.WithAutoConfig()
	}

	if err := b.validate(); err != nil {
		return nil, err
	}

	logger, err := b.createLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	opts := b.buildFxOptions(logger)
	opts = append(opts, fx.Invoke(func(srv *server.Server, db *gorm.DB, svc *otp.Service) {
		app.server = srv
		app.db = db
		app.otp = svc
	}))

	fxApp := fx.New(opts...)
	if err := fxApp.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}
	app.fx = fxApp

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	if b.config == nil {
		return errors.New("config is required")
	}

	if err := b.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

func (b *AppBuilder) createLogger() (*logging.Service, error) {
	return logging.NewService(logging.Config{
		Level:      logging.LogLevel(b.config.Log.Level),
		Format:     b.config.Log.Format,
		OutputPath: b.config.Log.Output,
	})
}

func (b *AppBuilder) tables() []any {
	tables := append([]any{}, otp.Models()...)
	tables = append(tables, registry.Models()...)
	return append(tables, b.models...)
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	opts := []fx.Option{
		fx.Supply(b.config),
		fx.Supply(logger),
		fx.Supply(database.WithModels(b.tables()...)),
		fx.NopLogger,
		database.Module,
		server.NewProvider(),
		registry.Module,
		otp.Module,
	}

	if b.services["mail"] {
		opts = append(opts, mail.Module)
	}
	if b.services["metrics"] {
		opts = append(opts, metrics.Module)
	}
	if b.services["votingpass"] {
		opts = append(opts, votingpass.Module)
	}
	if b.services["ratelimit"] {
		opts = append(opts, ratelimit.Module)
	}

	opts = append(opts, b.fxOptions...)
	opts = append(opts, handlers.Module)

	return opts
}
