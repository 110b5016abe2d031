package reservation

import "errors"

// Expected, recoverable outcomes of contention. These are reported to
// the requesting client as structured responses, never escalated.
var (
	ErrSlotNotFound      = errors.New("slot not found")
	ErrAlreadyHeld       = errors.New("slot already held")
	ErrCapacityExhausted = errors.New("slot capacity exhausted")
	ErrHoldInvalid       = errors.New("hold invalid")
	ErrNotHolder         = errors.New("session does not own this hold")
	ErrNoActiveHold      = errors.New("session has no active hold")
	ErrValidationFailed  = errors.New("booking validation failed")
)

// ErrorCode maps a reservation error to the wire-level code exposed to
// clients. Unknown errors map to empty string (infrastructure fault).
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, ErrAlreadyHeld):
		return "already_held"
	case errors.Is(err, ErrCapacityExhausted):
		return "capacity_exhausted"
	case errors.Is(err, ErrHoldInvalid):
		return "hold_invalid"
	case errors.Is(err, ErrNotHolder):
		return "not_holder"
	case errors.Is(err, ErrNoActiveHold):
		return "no_active_hold"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	}
	return ""
}
