package mail

import (
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/otp"
	"go.uber.org/fx"
)

func ProvideMailService(cfg *config.Config, logger *logging.Service) (*Service, error) {
	if !cfg.Mail.Enabled {
		logger.Warn("mail disabled, one-time codes will not be delivered by email")
		return nil, nil
	}
	return NewService(&cfg.Mail, cfg.App.Name, logger.Named("mail"))
}

func ProvideNotifier(svc *Service) otp.Notifier {
	if svc == nil {
		return nil
	}
	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideMailService),
	fx.Provide(ProvideNotifier),
)
