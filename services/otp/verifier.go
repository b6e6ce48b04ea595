package otp

import (
	"context"
	"errors"
	"time"

	"github.com/tech-arch1tect/votegate/services/logging"
	"go.uber.org/zap"
)

type VerifierConfig struct {
	Expiry     time.Duration
	CodeLength int
	// RequirePair rejects lookups that do not name the voter and election.
	RequirePair bool
}

type Verifier struct {
	store    Store
	clock    Clock
	config   VerifierConfig
	observer Observer
	logger   *logging.Service
}

func NewVerifier(store Store, clock Clock, config VerifierConfig, observer Observer, logger *logging.Service) *Verifier {
	if clock == nil {
		clock = SystemClock()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Verifier{
		store:    store,
		clock:    clock,
		config:   config,
		observer: observer,
		logger:   logger,
	}
}

func (v *Verifier) Verify(ctx context.Context, req VerifyRequest) (result *VerifyResult, err error) {
	start := time.Now()
	defer func() {
		v.observer.ObserveVerify(outcomeOf(err), time.Since(start))
		v.logOutcome(req, result, err)
	}()

	code := NormalizeCode(req.Code)
	if !validCode(code, v.config.CodeLength) {
		return nil, validationError("code must be exactly the issued length and alphanumeric", map[string]any{
			"code_length": v.config.CodeLength,
		})
	}

	pair, err := v.lookupPair(req)
	if err != nil {
		return nil, err
	}

	record, err := v.store.FindByCode(ctx, code, pair)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrCodeMismatch
	}
	if err != nil {
		return nil, storeError("find record", err)
	}

	if record.IsUsed() {
		return nil, ErrAlreadyConsumed
	}

	now := v.clock.Now()
	if record.IsExpired(now, v.config.Expiry) {
		if err := v.store.Delete(ctx, record); err != nil {
			return nil, storeError("delete expired record", err)
		}
		return nil, withDetails(ErrExpired, "", map[string]any{
			"expired_at": record.ExpiresAt(v.config.Expiry),
		})
	}

	used, err := v.store.MarkUsed(ctx, record, now)
	if errors.Is(err, ErrNotPending) {
		return nil, ErrAlreadyConsumed
	}
	if errors.Is(err, ErrPairVoted) {
		if err := v.store.Delete(ctx, record); err != nil {
			return nil, storeError("delete record of voted pair", err)
		}
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		return nil, storeError("mark record used", err)
	}

	return &VerifyResult{
		RecordID:   used.ID,
		VoterID:    used.VoterID,
		ElectionID: used.ElectionID,
		VerifiedAt: now,
	}, nil
}

func (v *Verifier) lookupPair(req VerifyRequest) (*Pair, error) {
	if req.VoterID == 0 && req.ElectionID == 0 {
		if v.config.RequirePair {
			return nil, validationError("voter_id and election_id are required", nil)
		}
		return nil, nil
	}
	if req.VoterID == 0 || req.ElectionID == 0 {
		return nil, validationError("voter_id and election_id must be given together", nil)
	}
	return &Pair{VoterID: req.VoterID, ElectionID: req.ElectionID}, nil
}

func (v *Verifier) logOutcome(req VerifyRequest, result *VerifyResult, err error) {
	if v.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("outcome", outcomeOf(err))}
	if result != nil {
		fields = append(fields,
			zap.Uint("voter_id", result.VoterID),
			zap.Uint("election_id", result.ElectionID),
			zap.String("record_id", result.RecordID))
	} else if req.VoterID != 0 {
		fields = append(fields, zap.Uint("voter_id", req.VoterID), zap.Uint("election_id", req.ElectionID))
	}

	var e *Error
	switch {
	case err == nil:
		v.logger.Info("otp verify", fields...)
	case errors.As(err, &e) && e.Domain():
		v.logger.Info("otp verify", fields...)
	default:
		v.logger.Error("otp verify", append(fields, zap.Error(err))...)
	}
}
