package game

import "errors"

// Validation errors - the request was wrong, room state is untouched.
var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrWrongPhase      = errors.New("action not allowed in current phase")
	ErrBadCardIndex    = errors.New("card index out of range")
	ErrIllegalCard     = errors.New("card does not match the top card")
	ErrIllegalDrawFour = errors.New("draw four is not playable while holding a matching color")
	ErrBadColor        = errors.New("color must be red, green, blue or yellow")
	ErrNotColorPicker  = errors.New("another player owns the pending color choice")
)

// Lifecycle errors - room/seat bookkeeping failures.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrIdentityTaken    = errors.New("name already taken in this room")
	ErrRoomFull         = errors.New("room is full")
	ErrGameStarted      = errors.New("game already started")
	ErrGameNotStarted   = errors.New("game has not started")
	ErrNotEnoughPlayers = errors.New("at least two players required")
	ErrSeatNotFound     = errors.New("player is not seated in this room")
	// Reconnect eligibility, each reason surfaced separately.
	ErrRoomGone         = errors.New("reconnect not eligible: room no longer exists")
	ErrAlreadyConnected = errors.New("reconnect not eligible: identity already active")
	ErrNeverPresent     = errors.New("reconnect not eligible: identity was never seated")
)

// Resource errors - deck accounting edge cases.
var (
	ErrDeckEmpty          = errors.New("deck is empty")
	ErrInsufficientCards  = errors.New("not enough cards in deck")
	ErrUnrecoverableEmpty = errors.New("deck and discard pile are both exhausted")
)

// ErrInvariantViolation marks a room whose card accounting or turn pointer
// went inconsistent. The room is dead once this is observed.
var ErrInvariantViolation = errors.New("room state invariant violated")

// ErrorKind buckets player-facing failures for reporting.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindLifecycle  ErrorKind = "lifecycle"
	KindResource   ErrorKind = "resource"
	KindInvariant  ErrorKind = "invariant"
)

// KindOf classifies an error into the failure taxonomy. Unknown errors are
// treated as validation failures (recoverable, requester-scoped).
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvariantViolation):
		return KindInvariant
	case errors.Is(err, ErrDeckEmpty),
		errors.Is(err, ErrInsufficientCards),
		errors.Is(err, ErrUnrecoverableEmpty):
		return KindResource
	case errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrIdentityTaken),
		errors.Is(err, ErrRoomFull),
		errors.Is(err, ErrGameStarted),
		errors.Is(err, ErrGameNotStarted),
		errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrSeatNotFound),
		errors.Is(err, ErrRoomGone),
		errors.Is(err, ErrAlreadyConnected),
		errors.Is(err, ErrNeverPresent):
		return KindLifecycle
	default:
		return KindValidation
	}
}
