package votegate

import (
	"github.com/tech-arch1tect/votegate/app"
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/internal/options"
)

type App = app.App

func New(opts ...options.Option) (*App, error) {
	return app.New(opts...)
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

func WithAll() options.Option {
	return options.WithAll()
}

func WithModels(models ...any) options.Option {
	return options.WithModels(models...)
}
