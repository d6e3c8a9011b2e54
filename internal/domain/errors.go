package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomClosed           = errors.New("room closed")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrObserverCannotVote   = errors.New("observers cannot vote")
	ErrMustVoteBeforeReveal = errors.New("you must vote before revealing votes")
	ErrOnlyObserverCanReset = errors.New("only observers can reset before votes are revealed")
	ErrUnknownSequence      = errors.New("unknown card sequence")
	ErrEmptyVote            = errors.New("vote cannot be empty")
	ErrInvalidUsername      = errors.New("invalid username")
	ErrInvalidRoomID        = errors.New("invalid room id")
)

// IsAuthorization reports whether err is a role or vote-state refusal
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrObserverCannotVote) ||
		errors.Is(err, ErrMustVoteBeforeReveal) ||
		errors.Is(err, ErrOnlyObserverCanReset)
}
