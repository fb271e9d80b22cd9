package domain

import "errors"

// The engine's error taxonomy. Callers discriminate with errors.Is; the
// API layer maps each case to a status code via Code.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrInsufficientInventory  = errors.New("insufficient inventory")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Code returns the machine-readable code for a taxonomy error, or
// "internal" for anything outside the taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, ErrConcurrentModification):
		return "conflict"
	default:
		return "internal"
	}
}
