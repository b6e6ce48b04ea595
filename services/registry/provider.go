package registry

import (
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/otp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRepository(db *gorm.DB, logger *logging.Service) *Repository {
	return NewRepository(db, logger)
}

func ProvideAsVoterRepository(r *Repository) otp.VoterRepository {
	return r
}

func ProvideAsElectionRepository(r *Repository) otp.ElectionRepository {
	return r
}

var Module = fx.Options(
	fx.Provide(ProvideRepository),
	fx.Provide(ProvideAsVoterRepository),
	fx.Provide(ProvideAsElectionRepository),
)
