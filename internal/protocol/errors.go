package protocol

import (
	"errors"
	"fmt"

	"github.com/eigerco/tribunal/internal/safemath"
)

// Kind groups protocol errors by the condition a caller has to correct.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindState
	KindAuthorization
	KindArithmetic
	KindEligibility
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindArithmetic:
		return "arithmetic"
	case KindEligibility:
		return "eligibility"
	default:
		return "unknown"
	}
}

// Error is a protocol failure with a stable code.
type Error struct {
	Code string
	Kind Kind
}

func (e *Error) Error() string { return e.Code }

func newError(kind Kind, code string) *Error { return &Error{Code: code, Kind: kind} }

// Validation
var (
	ErrInvalidAmount        = newError(KindValidation, "invalid_amount")
	ErrBelowMinimum         = newError(KindValidation, "amount_below_minimum")
	ErrInvalidVotingPeriod  = newError(KindValidation, "invalid_voting_period")
	ErrInvalidIdentifier    = newError(KindValidation, "invalid_identifier")
	ErrInvalidDisputeType   = newError(KindValidation, "invalid_dispute_type")
	ErrInvalidRole          = newError(KindValidation, "invalid_role")
	ErrInvalidFundingSource = newError(KindValidation, "invalid_funding_source")
	ErrDetailsTooLong       = newError(KindValidation, "details_too_long")
	ErrInvalidVoteChoice    = newError(KindValidation, "invalid_vote_choice")
	ErrUnknownMsg           = newError(KindValidation, "unknown_msg")
	ErrMalformedMsg         = newError(KindValidation, "malformed_msg")
	ErrInvalidParams        = newError(KindValidation, "invalid_params")
)

// State
var (
	ErrNotInitialized      = newError(KindState, "not_initialized")
	ErrAlreadyInitialized  = newError(KindState, "already_initialized")
	ErrPoolExists          = newError(KindState, "pool_exists")
	ErrPoolNotFound        = newError(KindState, "pool_not_found")
	ErrInsufficientFunds   = newError(KindState, "insufficient_funds")
	ErrSubjectExists       = newError(KindState, "subject_exists")
	ErrSubjectNotFound     = newError(KindState, "subject_not_found")
	ErrInvalidSubjectState = newError(KindState, "invalid_subject_status")
	ErrDisputeExists       = newError(KindState, "dispute_already_pending")
	ErrNoPendingDispute    = newError(KindState, "no_pending_dispute")
	ErrNotRestoreDispute   = newError(KindState, "not_restore_dispute")
	ErrRestoreDispute      = newError(KindState, "restore_dispute")
	ErrAlreadyVoted        = newError(KindState, "already_voted")
	ErrNotVoted            = newError(KindState, "not_voted")
	ErrRecordNotFound      = newError(KindState, "record_not_found")
	ErrRoundNotFound       = newError(KindState, "round_result_not_found")
	ErrAlreadyClaimed      = newError(KindState, "reward_already_claimed")
	ErrNotClaimed          = newError(KindState, "reward_not_claimed")
	ErrStakeLocked         = newError(KindState, "stake_still_locked")
	ErrAlreadyUnlocked     = newError(KindState, "stake_already_unlocked")
	ErrStakeNotUnlocked    = newError(KindState, "stake_not_unlocked")
	ErrRoundSwept          = newError(KindState, "round_swept")
	ErrGracePeriodActive   = newError(KindState, "grace_period_active")
	ErrNothingToSweep      = newError(KindState, "nothing_to_sweep")
	ErrVotingNotEnded      = newError(KindState, "voting_not_ended")
)

// Authorization
var (
	ErrNotAuthority = newError(KindAuthorization, "not_authority")
	ErrNotCreator   = newError(KindAuthorization, "not_subject_creator")
	ErrNotDefender  = newError(KindAuthorization, "not_defender")
)

// Arithmetic
var (
	ErrArithmeticOverflow = newError(KindArithmetic, "arithmetic_overflow")
	ErrDivisionByZero     = newError(KindArithmetic, "division_by_zero")
)

// Eligibility
var (
	ErrStakeBelowMinBond   = newError(KindEligibility, "stake_below_min_bond")
	ErrRestoreStakeTooLow  = newError(KindEligibility, "restore_stake_below_minimum")
	ErrVotingClosed        = newError(KindEligibility, "voting_window_closed")
	ErrNotWinningSide      = newError(KindEligibility, "not_on_winning_side")
	ErrNothingToClaim      = newError(KindEligibility, "nothing_to_claim")
	ErrRestoreNotAvailable = newError(KindEligibility, "restore_not_available")
)

// KindOf returns the kind of the protocol error in err's chain, or zero.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}

// CodeOf returns the code of the protocol error in err's chain, or "".
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// arith converts safemath failures into protocol arithmetic errors.
func arith(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, safemath.ErrDivisionByZero):
		return fmt.Errorf("%w: %w", ErrDivisionByZero, err)
	case errors.Is(err, safemath.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	default:
		return err
	}
}

func add(a, b uint64) (uint64, error) {
	v, ok := safemath.Add64(a, b)
	if !ok {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return v, nil
}

func sub(a, b uint64) (uint64, error) {
	v, ok := safemath.Sub64(a, b)
	if !ok {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticOverflow, a, b)
	}
	return v, nil
}

func inc(n uint32) (uint32, error) {
	v, ok := safemath.Add32(n, 1)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	return v, nil
}
