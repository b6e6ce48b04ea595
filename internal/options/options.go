package options

import (
	"github.com/tech-arch1tect/votegate/config"
	"go.uber.org/fx"
)

type Options struct {
	Config           *config.Config
	EnableMail       bool
	EnableMetrics    bool
	EnableVotingPass bool
	EnableRateLimit  bool
	ExtraModels      []any
	ExtraFxOptions   []fx.Option
}

type Option func(*Options)

func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

func WithMail() Option {
	return func(opts *Options) {
		opts.EnableMail = true
	}
}

func WithMetrics() Option {
	return func(opts *Options) {
		opts.EnableMetrics = true
	}
}

func WithVotingPass() Option {
	return func(opts *Options) {
		opts.EnableVotingPass = true
	}
}

func WithRateLimit() Option {
	return func(opts *Options) {
		opts.EnableRateLimit = true
	}
}

func WithAll() Option {
	return func(opts *Options) {
		opts.EnableMail = true
		opts.EnableMetrics = true
		opts.EnableVotingPass = true
		opts.EnableRateLimit = true
	}
}

func WithModels(models ...any) Option {
	return func(opts *Options) {
		opts.ExtraModels = append(opts.ExtraModels, models...)
	}
}

func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.ExtraFxOptions = append(opts.ExtraFxOptions, fxOpts...)
	}
}
