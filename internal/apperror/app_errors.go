package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey         = errors.New("invalid public key")
	ErrInvalidPlacement   = errors.New("invalid placement")
	ErrNetwork            = errors.New("ledger network failure")
	ErrValidationRejected = errors.New("transaction rejected by ledger")
	ErrNotFound           = errors.New("object not found")
	ErrState              = errors.New("invalid game state")
	ErrStageFailed        = errors.New("failed to stage move token")

	ErrOutOfRange   = fmt.Errorf("placement index out of range: %w", ErrInvalidPlacement)
	ErrCellOccupied = fmt.Errorf("cell is already occupied: %w", ErrInvalidPlacement)

	ErrGameFinished = fmt.Errorf("game is already finished: %w", ErrState)
	ErrNotYourTurn  = fmt.Errorf("it's not your turn: %w", ErrState)

	ErrGameNotFound   = fmt.Errorf("game: %w", ErrNotFound)
	ErrTokenNotFound  = fmt.Errorf("move token: %w", ErrNotFound)
	ErrTrophyNotFound = fmt.Errorf("trophy: %w", ErrNotFound)

	ErrApplyRejected = fmt.Errorf("apply move: %w", ErrValidationRejected)

	ErrSyncStopped        = errors.New("game sync is stopped")
	ErrSyncAlreadyStarted = errors.New("game sync is already started")
	ErrMoveInProgress     = errors.New("another move is in progress")
)

// Kind is a stable, transport-friendly name of an error category.
type Kind string

const (
	KindInvalidKey         Kind = "invalid_key"
	KindInvalidPlacement   Kind = "invalid_placement"
	KindNetwork            Kind = "network"
	KindValidationRejected Kind = "validation_rejected"
	KindNotFound           Kind = "not_found"
	KindState              Kind = "state"
	KindStageFailed        Kind = "stage_failed"
	KindInternal           Kind = "internal"
)

// KindOf reports the category of err. StageFailed wins over its cause.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStageFailed):
		return KindStageFailed
	case errors.Is(err, ErrInvalidKey):
		return KindInvalidKey
	case errors.Is(err, ErrInvalidPlacement):
		return KindInvalidPlacement
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrState), errors.Is(err, ErrSyncStopped), errors.Is(err, ErrMoveInProgress):
		return KindState
	default:
		return KindInternal
	}
}
