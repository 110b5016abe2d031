// File: services/reservation/commit.go
package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	slotRepo "slotwise/database/repository/slot"
	"slotwise/metrics"
	"slotwise/models"
	"slotwise/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommitBooking converts the caller's live hold into a permanent
// booking. The whole sequence runs under the engine mutex, so two
// commits racing for the same slot serialize: the first consumes the
// hold, the second finds no hold and gets ErrHoldInvalid.
func (e *Engine) CommitBooking(ctx context.Context, req models.CommitBookingRequest, requesterID string) (*models.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Validation and consumption are one atomic step: validHolderLocked
	// and consumeLocked happen under the same lock acquisition, so a
	// stale token, an expired hold, or a concurrent earlier commit all
	// surface here as hold_invalid.
	if !e.validHolderLocked(req.SlotID, req.SessionID, req.HoldToken) {
		metrics.IncBookingCommit("hold_invalid")
		return nil, ErrHoldInvalid
	}
	hold := e.holdBySession[req.SessionID]

	slot, err := e.slots.GetByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotMissing) {
			metrics.IncBookingCommit("slot_not_found")
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	if !slot.Active {
		metrics.IncBookingCommit("validation_failed")
		return nil, fmt.Errorf("%w: slot no longer enabled", ErrValidationFailed)
	}
	now := e.clock.Now()
	if !now.Before(slot.Start) {
		metrics.IncBookingCommit("validation_failed")
		return nil, fmt.Errorf("%w: slot start time already passed", ErrValidationFailed)
	}

	e.consumeLocked(hold)

	if err := e.slots.CommitUnit(ctx, req.SlotID); err != nil {
		// The unit could not be claimed after all; give the hold back
		// with its remaining TTL so the client may retry or release.
		e.reinstateLocked(hold)
		switch {
		case errors.Is(err, slotRepo.ErrNoCapacity):
			metrics.IncBookingCommit("capacity_exhausted")
			return nil, ErrCapacityExhausted
		case errors.Is(err, slotRepo.ErrSlotMissing):
			metrics.IncBookingCommit("slot_not_found")
			return nil, ErrSlotNotFound
		default:
			metrics.IncBookingCommit("error")
			return nil, fmt.Errorf("commit booking: %w", err)
		}
	}

	booking := &models.Booking{
		ID:          uuid.New().String(),
		SlotID:      slot.ID,
		Scope:       slot.Scope,
		RequesterID: requesterID,
		Status:      models.BookingStatusConfirmed,
		Note:        req.Note,
		Contact:     req.Contact,
		CreatedAt:   now,
	}
	if err := e.bookings.Create(ctx, booking); err != nil {
		// Undo the occupancy increment; the maintenance reconciler also
		// repairs this if the process dies between the two writes.
		if relErr := e.slots.ReleaseUnit(ctx, req.SlotID); relErr != nil {
			utils.GetLogger().Error("failed to roll back occupancy after booking insert failure",
				zap.String("slot", req.SlotID), zap.Error(relErr))
		}
		e.reinstateLocked(hold)
		metrics.IncBookingCommit("error")
		return nil, fmt.Errorf("commit booking: %w", err)
	}

	e.broadcaster.Publish(slot.Scope, models.Event{
		Type:   models.EventSlotBooked,
		Scope:  slot.Scope,
		SlotID: slot.ID,
	}, "")

	metrics.IncBookingCommit("ok")
	utils.GetLogger().Info("booking committed",
		zap.String("booking", booking.ID),
		zap.String("slot", slot.ID),
		zap.String("requester", requesterID),
	)
	return booking, nil
}

// reinstateLocked puts a consumed hold back with whatever TTL it had
// left, re-arming its expiry timer.
func (e *Engine) reinstateLocked(hold *models.Hold) {
	remaining := hold.ExpiresAt.Sub(e.clock.Now())
	if remaining <= 0 {
		return
	}
	e.insertLocked(hold)
	token := hold.Token
	sessionID := hold.SessionID
	e.timers[sessionID] = time.AfterFunc(remaining, func() {
		e.expireHold(sessionID, token)
	})
	metrics.SetActiveHolds(len(e.holdBySession))
}
