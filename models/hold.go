package models

import "time"

// Hold is an ephemeral, exclusive claim on one unit of a slot's
// remaining capacity. Holds live only in process memory: after a
// restart every slot that looked held reverts to free, which is the
// conservative choice for availability.
type Hold struct {
	SlotID    string    `json:"slot_id"`
	Scope     string    `json:"scope"`
	SessionID string    `json:"session_id"`
	Token     int64     `json:"token"` // monotonically increasing, disambiguates successive holds on one slot
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the hold's TTL has elapsed at the given instant.
func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// HoldGrant is returned to the acquiring session.
type HoldGrant struct {
	SlotID    string    `json:"slot_id"`
	Token     int64     `json:"token"`
	TTL       int       `json:"ttl"` // seconds; advisory for the client countdown, the server clock is authoritative
	ExpiresAt time.Time `json:"expires_at"`
}
