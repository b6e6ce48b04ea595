package metrics

import (
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/otp"
	"go.uber.org/fx"
)

func ProvideMetricsService(cfg *config.Config) *Service {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return NewService()
}

func ProvideObserver(svc *Service) otp.Observer {
	if svc == nil {
		return nil
	}
	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideMetricsService),
	fx.Provide(ProvideObserver),
)
