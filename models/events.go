package models

// Event is the JSON envelope exchanged over the realtime channel.
// Type selects which payload fields are populated.
type Event struct {
	Type string `json:"type"`

	Scope  string `json:"scope,omitempty"`
	SlotID string `json:"slot_id,omitempty"`
	TTL    int    `json:"ttl,omitempty"` // seconds, on slot_held / hold_slot_ack

	// Snapshot payload (slots_snapshot).
	Booked []string `json:"booked,omitempty"`
	Held   []string `json:"held,omitempty"`

	// Ack payload (hold_slot_ack / release_hold_ack).
	OK    *bool  `json:"ok,omitempty"`
	Error string `json:"error,omitempty"`

	// Connection payload (connected).
	SessionID string `json:"session_id,omitempty"`
}

// Client → server event types.
const (
	EventJoinDay     = "join_day"
	EventLeaveDay    = "leave_day"
	EventHoldSlot    = "hold_slot"
	EventReleaseHold = "release_hold"
)

// Server → client event types.
const (
	EventConnected      = "connected"
	EventSlotsSnapshot  = "slots_snapshot"
	EventSlotHeld       = "slot_held"
	EventSlotReleased   = "slot_released"
	EventSlotBooked     = "slot_booked"
	EventHoldExpired    = "hold_expired"
	EventHoldSlotAck    = "hold_slot_ack"
	EventReleaseHoldAck = "release_hold_ack"
)

func boolPtr(b bool) *bool { return &b }

// AckEvent builds a success/failure acknowledgment of the given type.
func AckEvent(typ string, ok bool, errCode string) Event {
	return Event{Type: typ, OK: boolPtr(ok), Error: errCode}
}
