package otp

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindVoterNotFound        Kind = "VOTER_NOT_FOUND"
	KindElectionNotFound     Kind = "ELECTION_NOT_FOUND"
	KindVoterIneligibleState Kind = "VOTER_INELIGIBLE_STATE"
	KindElectionClosed       Kind = "ELECTION_CLOSED"
	KindUnitMismatch         Kind = "UNIT_MISMATCH"
	KindAlreadyVoted         Kind = "ALREADY_VOTED"
	KindCodeMismatch         Kind = "CODE_MISMATCH"
	KindExpired              Kind = "EXPIRED"
	KindAlreadyConsumed      Kind = "ALREADY_CONSUMED"
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindStoreUnavailable     Kind = "STORE_UNAVAILABLE"
)

// Error values match under errors.Is by kind.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Domain() bool {
	return e.Kind != KindStoreUnavailable
}

var (
	ErrVoterNotFound        = &Error{Kind: KindVoterNotFound, Message: "voter not found"}
	ErrElectionNotFound     = &Error{Kind: KindElectionNotFound, Message: "election not found"}
	ErrVoterIneligibleState = &Error{Kind: KindVoterIneligibleState, Message: "voter is not in a state that allows voting"}
	ErrElectionClosed       = &Error{Kind: KindElectionClosed, Message: "election is not open for voting at this time"}
	ErrUnitMismatch         = &Error{Kind: KindUnitMismatch, Message: "voter and election must belong to the same organizational unit"}
	ErrAlreadyVoted         = &Error{Kind: KindAlreadyVoted, Message: "voter has already voted in this election"}
	ErrCodeMismatch         = &Error{Kind: KindCodeMismatch, Message: "invalid one-time code"}
	ErrExpired              = &Error{Kind: KindExpired, Message: "one-time code has expired"}
	ErrAlreadyConsumed      = &Error{Kind: KindAlreadyConsumed, Message: "one-time code has already been used"}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed, Message: "invalid request"}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable, Message: "internal error"}
)

var (
	ErrRecordNotFound  = errors.New("otp record not found")
	ErrNotPending      = errors.New("otp record is no longer pending")
	ErrPendingConflict = errors.New("conflicting pending otp record")
	ErrPairVoted       = errors.New("otp pair already has a used record")
)

func withDetails(base *Error, message string, details map[string]any) *Error {
	if message == "" {
		message = base.Message
	}
	return &Error{Kind: base.Kind, Message: message, Details: details}
}

func validationError(message string, details map[string]any) *Error {
	return withDetails(ErrValidationFailed, message, details)
}

func storeError(op string, err error) *Error {
	return &Error{
		Kind:    KindStoreUnavailable,
		Message: ErrStoreUnavailable.Message,
		cause:   fmt.Errorf("%s: %w", op, err),
	}
}

// KindOf returns the kind carried by err, or KindStoreUnavailable for
// anything that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStoreUnavailable
}
