package otp

import (
	"context"
	"time"

	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
)

// Service is the surface the HTTP layer calls into.
type Service struct {
	issuer   *Issuer
	verifier *Verifier
	sweeper  *Sweeper
}

type Dependencies struct {
	Store     Store
	Voters    VoterRepository
	Elections ElectionRepository
	Notifier  Notifier
	Observer  Observer
	Clock     Clock
	Codes     CodeSource
	Logger    *logging.Service
}

func NewService(cfg *config.Config, deps Dependencies) (*Service, error) {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	logger := deps.Logger.Named("otp")

	var checkerOpts []CheckerOption
	checkerOpts = append(checkerOpts, WithCheckerClock(clock))
	if cfg.OTP.ElectionWindow {
		loc, err := time.LoadLocation(cfg.OTP.ElectionTimezone)
		if err != nil {
			return nil, err
		}
		checkerOpts = append(checkerOpts, WithOpenPredicate(ElectionOpen(loc)))
	}

	checker := NewChecker(deps.Voters, deps.Elections, deps.Store, cfg.OTP.AllowedVoterStates, logger, checkerOpts...)

	issuer := NewIssuer(checker, deps.Store, deps.Codes, deps.Notifier, clock, IssuerConfig{
		Expiry:      cfg.OTP.Expiry(),
		CodeLength:  cfg.OTP.CodeLength,
		Development: !cfg.IsProduction(),
	}, deps.Observer, logger)

	verifier := NewVerifier(deps.Store, clock, VerifierConfig{
		Expiry:      cfg.OTP.Expiry(),
		CodeLength:  cfg.OTP.CodeLength,
		RequirePair: cfg.OTP.LookupScope == config.LookupScoped,
	}, deps.Observer, logger)

	sweeper := NewSweeper(deps.Store, clock, cfg.OTP.Expiry(), cfg.OTP.SweepSchedule, deps.Observer, logger)

	return &Service{issuer: issuer, verifier: verifier, sweeper: sweeper}, nil
}

func (s *Service) IssueOtp(ctx context.Context, voterID, electionID uint) (*IssueResult, error) {
	return s.issuer.Issue(ctx, voterID, electionID)
}

func (s *Service) VerifyOtp(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	return s.verifier.Verify(ctx, req)
}

func (s *Service) Sweep(ctx context.Context) (int64, error) {
	return s.sweeper.Sweep(ctx)
}

func (s *Service) Sweeper() *Sweeper {
	return s.sweeper
}

// Drain waits for background notifications started by IssueOtp, bounded by ctx.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.issuer.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
