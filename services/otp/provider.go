package otp

import (
	"context"

	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideStore(db *gorm.DB) Store {
	return NewGormStore(db)
}

type ServiceParams struct {
	fx.In
	Config    *config.Config
	Store     Store
	Voters    VoterRepository
	Elections ElectionRepository
	Logger    *logging.Service
	Notifier  Notifier   `optional:"true"`
	Observer  Observer   `optional:"true"`
	Clock     Clock      `optional:"true"`
	Codes     CodeSource `optional:"true"`
}

func ProvideService(p ServiceParams) (*Service, error) {
	return NewService(p.Config, Dependencies{
		Store:     p.Store,
		Voters:    p.Voters,
		Elections: p.Elections,
		Notifier:  p.Notifier,
		Observer:  p.Observer,
		Clock:     p.Clock,
		Codes:     p.Codes,
		Logger:    p.Logger,
	})
}

func RegisterLifecycle(lc fx.Lifecycle, cfg *config.Config, svc *Service, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if !cfg.OTP.SweepEnabled {
				logger.Debug("otp sweeper disabled in configuration")
				return nil
			}
			return svc.Sweeper().Start()
		},
		OnStop: func(ctx context.Context) error {
			if err := svc.Drain(ctx); err != nil {
				logger.Warn("pending otp notifications abandoned on shutdown", zap.Error(err))
			}
			if err := svc.Sweeper().Stop(ctx); err != nil {
				logger.Warn("otp sweeper did not stop cleanly", zap.Error(err))
			}
			return nil
		},
	})
}

// Models lists the tables owned by this package for auto-migration.
func Models() []any {
	return []any{&Record{}}
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideService),
	fx.Invoke(RegisterLifecycle),
)
