package otp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// VoterRepository returns (nil, nil) when the voter does not exist.
type VoterRepository interface {
	FindVoter(ctx context.Context, id uint) (*Voter, error)
}

// ElectionRepository returns (nil, nil) when the election does not exist.
type ElectionRepository interface {
	FindElection(ctx context.Context, id uint) (*Election, error)
}

// OpenPredicate reports whether an election accepts votes at now.
type OpenPredicate func(election *Election, now time.Time) bool

// Eligibility is what a successful check loaded.
type Eligibility struct {
	Voter    *Voter
	Election *Election
}

type Checker struct {
	voters        VoterRepository
	elections     ElectionRepository
	store         Store
	clock         Clock
	allowed       map[string]struct{}
	allowedStates []string
	isOpen        OpenPredicate
	logger        *logging.Service
}

type CheckerOption func(*Checker)

func WithOpenPredicate(p OpenPredicate) CheckerOption {
	return func(c *Checker) { c.isOpen = p }
}

func WithCheckerClock(clock Clock) CheckerOption {
	return func(c *Checker) { c.clock = clock }
}

func NewChecker(voters VoterRepository, elections ElectionRepository, store Store, allowedStates []string, logger *logging.Service, opts ...CheckerOption) *Checker {
	c := &Checker{
		voters:        voters,
		elections:     elections,
		store:         store,
		clock:         SystemClock(),
		allowed:       make(map[string]struct{}, len(allowedStates)),
		allowedStates: allowedStates,
		logger:        logger,
	}
	for _, state := range allowedStates {
		c.allowed[normalizeState(state)] = struct{}{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeState(state string) string {
	return cases.Fold().String(strings.TrimSpace(state))
}

// Check returns the first failed eligibility check.
func (c *Checker) Check(ctx context.Context, voterID, electionID uint) (*Eligibility, error) {
	voter, err := c.voters.FindVoter(ctx, voterID)
	if err != nil {
		return nil, storeError("find voter", err)
	}
	if voter == nil {
		return nil, withDetails(ErrVoterNotFound, "", map[string]any{"voter_id": voterID})
	}

	if _, ok := c.allowed[normalizeState(voter.State)]; !ok {
		return nil, withDetails(ErrVoterIneligibleState,
			"voter must be in one of the allowed states: "+strings.Join(c.allowedStates, ", "),
			map[string]any{"state": strings.TrimSpace(voter.State), "allowed_states": c.allowedStates})
	}

	election, err := c.elections.FindElection(ctx, electionID)
	if err != nil {
		return nil, storeError("find election", err)
	}
	if election == nil {
		return nil, withDetails(ErrElectionNotFound, "", map[string]any{"election_id": electionID})
	}

	if c.isOpen != nil {
		now := c.clock.Now()
		if !c.isOpen(election, now) {
			return nil, withDetails(ErrElectionClosed, "", windowDetails(election.Window, now))
		}
	}

	if voter.UnitID != election.UnitID {
		return nil, withDetails(ErrUnitMismatch, "", map[string]any{
			"voter_unit_id":    voter.UnitID,
			"election_unit_id": election.UnitID,
		})
	}

	used, err := c.store.FindUsed(ctx, voterID, electionID)
	switch {
	case errors.Is(err, ErrRecordNotFound):
	case err != nil:
		return nil, storeError("find used record", err)
	default:
		if c.logger != nil {
			c.logger.Info("voter already voted",
				zap.Uint("voter_id", voterID),
				zap.Uint("election_id", electionID),
				zap.String("record_id", used.ID))
		}
		votedAt := used.CreatedAt
		if used.UsedAt != nil {
			votedAt = *used.UsedAt
		}
		return nil, withDetails(ErrAlreadyVoted, "", map[string]any{
			"voted_at": votedAt,
			"code":     used.Code,
		})
	}

	return &Eligibility{Voter: voter, Election: election}, nil
}
