package models

import "time"

// Booking represents a confirmed, permanent claim on one unit of a
// slot's capacity. Status transitions past "confirmed" (approval,
// cancellation) belong to the portal's business layer, not this core.
type Booking struct {
	ID          string    `bson:"id" json:"id"`
	SlotID      string    `bson:"slot_id" json:"slot_id"`
	Scope       string    `bson:"scope" json:"scope"`
	RequesterID string    `bson:"requester_id" json:"requester_id"`
	Status      string    `bson:"status" json:"status"` // "confirmed" on creation
	Note        string    `bson:"note,omitempty" json:"note,omitempty"`
	Contact     string    `bson:"contact,omitempty" json:"contact,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

const BookingStatusConfirmed = "confirmed"

// CommitBookingRequest defines the payload for the booking commit endpoint.
// SessionID and HoldToken must match the live hold acquired over the
// event channel; the form fields travel alongside.
type CommitBookingRequest struct {
	SlotID    string `json:"slot_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
	HoldToken int64  `json:"hold_token" binding:"required"`
	Note      string `json:"note"`
	Contact   string `json:"contact"`
}
