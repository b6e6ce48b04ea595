package votingpass

import (
	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/fx"
)

func ProvideVotingPassService(cfg *config.Config, logger *logging.Service) *Service {
	if !cfg.VotingPass.Enabled {
		logger.Debug("voting passes disabled in configuration")
		return nil
	}
	return NewService(&cfg.VotingPass, logger.Named("votingpass"))
}

var Module = fx.Options(
	fx.Provide(ProvideVotingPassService),
)
