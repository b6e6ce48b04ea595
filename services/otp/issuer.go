package otp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
)

const (
	createAttempts  = 3
	notifyTimeout   = 30 * time.Second
	developmentNote = "The code is only included outside production. In production it is delivered by email only."
)

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type IssuerConfig struct {
	Expiry      time.Duration
	CodeLength  int
	Development bool
}

type Issuer struct {
	checker  *Checker
	store    Store
	codes    CodeSource
	notifier Notifier
	clock    Clock
	config   IssuerConfig
	observer Observer
	logger   *logging.Service

	inflight sync.WaitGroup
}

func NewIssuer(checker *Checker, store Store, codes CodeSource, notifier Notifier, clock Clock, config IssuerConfig, observer Observer, logger *logging.Service) *Issuer {
	if codes == nil {
		codes = RandomCodeSource()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Issuer{
		checker:  checker,
		store:    store,
		codes:    codes,
		notifier: notifier,
		clock:    clock,
		config:   config,
		observer: observer,
		logger:   logger,
	}
}

func (i *Issuer) Issue(ctx context.Context, voterID, electionID uint) (result *IssueResult, err error) {
	start := time.Now()
	defer func() {
		i.observer.ObserveIssue(outcomeOf(err), time.Since(start))
		i.logOutcome("otp issue", voterID, electionID, err)
	}()

	if voterID == 0 || electionID == 0 {
		return nil, validationError("voter_id and election_id must be positive integers", map[string]any{
			"voter_id":    voterID,
			"election_id": electionID,
		})
	}

	eligibility, err := i.checker.Check(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}

	record, err := i.persist(ctx, voterID, electionID)
	if err != nil {
		return nil, err
	}

	voter := eligibility.Voter
	election := eligibility.Election
	contact := strings.TrimSpace(voter.ContactAddress)
	minutes := int(i.config.Expiry / time.Minute)

	i.dispatch(ctx, Notification{
		To:            contact,
		VoterName:     voter.DisplayName,
		ElectionName:  election.Name,
		Code:          record.Code,
		ExpiryMinutes: minutes,
	}, record.ID)

	result = &IssueResult{
		Generated:        true,
		EmailSentTo:      contact,
		ExpiresInMinutes: minutes,
		ExpiresAt:        record.ExpiresAt(i.config.Expiry),
		Election: ElectionSummary{
			Name:           election.Name,
			UnitName:       election.UnitName,
			CandidateCount: election.CandidateCount,
		},
		Voter: VoterSummary{
			DisplayName: voter.DisplayName,
			UnitName:    voter.UnitName,
		},
		RecordID: record.ID,
	}
	if i.config.Development {
		result.Code = record.Code
		result.DevelopmentNote = developmentNote
	}

	return result, nil
}

func (i *Issuer) persist(ctx context.Context, voterID, electionID uint) (*Record, error) {
	var lastErr error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		now := i.clock.Now()

		code, err := i.codes.Next(i.config.CodeLength)
		if err != nil {
			return nil, storeError("generate code", err)
		}

		var record *Record
		err = i.store.Transaction(ctx, func(tx Store) error {
			_, err := tx.FindUsed(ctx, voterID, electionID)
			if err == nil {
				return ErrPairVoted
			}
			if !errors.Is(err, ErrRecordNotFound) {
				return err
			}
			if _, err := tx.PurgeStale(ctx, voterID, electionID, now.Add(-i.config.Expiry)); err != nil {
				return err
			}
			created, err := tx.Create(ctx, voterID, electionID, code, now)
			if err != nil {
				return err
			}
			record = created
			return nil
		})
		if err == nil {
			return record, nil
		}
		if errors.Is(err, ErrPairVoted) {
			return nil, ErrAlreadyVoted
		}
		if !errors.Is(err, ErrPendingConflict) {
			return nil, storeError("create record", err)
		}

		lastErr = err
		if i.logger != nil {
			i.logger.Warn("otp create conflict, retrying",
				zap.Uint("voter_id", voterID),
				zap.Uint("election_id", electionID),
				zap.Int("attempt", attempt))
		}
	}

	return nil, storeError("create record", lastErr)
}

func (i *Issuer) dispatch(ctx context.Context, n Notification, recordID string) {
	if i.notifier == nil {
		return
	}

	i.inflight.Add(1)
	go func() {
		defer i.inflight.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		err := i.notifier.Notify(sendCtx, n)
		i.observer.ObserveNotify(err)
		if err != nil {
			if i.logger != nil {
				i.logger.Error("failed to deliver otp notification",
					zap.String("record_id", recordID),
					zap.String("to", n.To),
					zap.Error(err))
			}
			return
		}
		if i.logger != nil {
			i.logger.Info("otp notification delivered",
				zap.String("record_id", recordID),
				zap.String("to", n.To))
		}
	}()
}

// Wait blocks until in-flight notifications have finished.
func (i *Issuer) Wait() {
	i.inflight.Wait()
}

func (i *Issuer) logOutcome(msg string, voterID, electionID uint, err error) {
	if i.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Uint("voter_id", voterID),
		zap.Uint("election_id", electionID),
		zap.String("outcome", outcomeOf(err)),
	}
	var e *Error
	switch {
	case err == nil:
		i.logger.Info(msg, fields...)
	case errors.As(err, &e) && e.Domain():
		i.logger.Info(msg, fields...)
	default:
		i.logger.Error(msg, append(fields, zap.Error(err))...)
	}
}
