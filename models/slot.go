package models

import "time"

// Slot represents a bookable time window with finite capacity.
// Slots are produced by an upstream schedule generator; this service
// only mutates occupancy (permanently, on commit) and tracks holds
// against the remaining capacity in memory.
type Slot struct {
	ID        string    `bson:"id" json:"id"`
	Scope     string    `bson:"scope" json:"scope"` // e.g., "2026-09-01" or "2026-09-01:coord-17"
	Start     time.Time `bson:"start" json:"start"`
	End       time.Time `bson:"end" json:"end"`
	Capacity  int       `bson:"capacity" json:"capacity"`   // almost always 1; >1 for group slots
	Occupancy int       `bson:"occupancy" json:"occupancy"` // permanently booked units, never exceeds Capacity
	Active    bool      `bson:"active" json:"active"`       // soft-deactivation flag; inactive slots are invisible to booking
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Remaining returns the number of units not yet permanently booked.
// Active holds are tracked by the reservation engine, not here.
func (s *Slot) Remaining() int {
	return s.Capacity - s.Occupancy
}

// Full reports whether every unit of the slot is permanently booked.
func (s *Slot) Full() bool {
	return s.Occupancy >= s.Capacity
}

// SlotView is the read model returned by the listing endpoint. Remaining
// counts units not yet permanently booked; active holds surface
// separately through Held so the portal can render availability before
// the client joins the scope's room.
type SlotView struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Capacity  int       `json:"capacity"`
	Remaining int       `json:"remaining"`
	Held      bool      `json:"held"`
}

// UpsertSlotRequest defines the payload for the admin slot upsert endpoint.
type UpsertSlotRequest struct {
	ID       string    `json:"id" binding:"required"`
	Scope    string    `json:"scope" binding:"required"`
	Start    time.Time `json:"start" binding:"required"`
	End      time.Time `json:"end" binding:"required"`
	Capacity int       `json:"capacity" binding:"required,min=1"`
}
