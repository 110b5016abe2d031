// File: services/reservation/engine.go
package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	bookingRepo "slotwise/database/repository/booking"
	slotRepo "slotwise/database/repository/slot"
	"slotwise/metrics"
	"slotwise/models"
	"slotwise/utils"

	"go.uber.org/zap"
)

// Broadcaster fans slot-state events out to room subscribers. The
// realtime hub implements it; tests substitute a recorder.
type Broadcaster interface {
	// Publish delivers the event to every subscriber of scope, except
	// excludeSession when non-empty. Must not block.
	Publish(scope string, event models.Event, excludeSession string)
	// SendTo delivers the event to one session, if still connected.
	SendTo(sessionID string, event models.Event)
}

// Hold release reasons, used for logging and metrics labels.
const (
	releaseVoluntary  = "released"
	releaseExpired    = "expired"
	releaseSwitched   = "switched"
	releaseDisconnect = "disconnect"
	releaseConsumed   = "consumed"
)

// Engine is the serialization point for all slot-state mutations.
// A single mutex guards the hold tables and orders every capacity
// check-and-set; per-slot event streams are therefore causally ordered
// because all events for a slot are published while holding it.
type Engine struct {
	slots    slotRepo.SlotRepository
	bookings bookingRepo.BookingRepository

	broadcaster Broadcaster
	clock       Clock
	ttl         time.Duration

	mu            sync.Mutex
	nextToken     int64
	holdsBySlot   map[string]map[string]*models.Hold // slot id -> session id -> hold
	holdBySession map[string]*models.Hold
	timers        map[string]*time.Timer // session id -> expiry timer
}

// NewEngine wires the reservation engine. The broadcaster is injected
// once at construction; nothing reaches it through package globals.
func NewEngine(slots slotRepo.SlotRepository, bookings bookingRepo.BookingRepository, b Broadcaster, clock Clock, ttl time.Duration) *Engine {
	e := &Engine{
		slots:         slots,
		bookings:      bookings,
		broadcaster:   b,
		clock:         clock,
		ttl:           ttl,
		holdsBySlot:   make(map[string]map[string]*models.Hold),
		holdBySession: make(map[string]*models.Hold),
		timers:        make(map[string]*time.Timer),
	}
	return e
}

// TTLSeconds returns the configured hold TTL in whole seconds, as
// advertised to clients in slot_held and hold_slot_ack events.
func (e *Engine) TTLSeconds() int {
	return int(e.ttl / time.Second)
}

// AcquireHold grants the session an exclusive temporary claim on one
// unit of the slot's remaining capacity. If the session already owns a
// hold (on any slot), that hold is released first and its release is
// broadcast, exactly as if the client had released it manually.
func (e *Engine) AcquireHold(ctx context.Context, slotID, sessionID string) (*models.HoldGrant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev := e.holdBySession[sessionID]; prev != nil {
		// Re-requesting the slot already held just refreshes the TTL.
		// A different slot means switch: the old hold is released, and
		// its release broadcast, exactly as a manual release would be.
		if prev.SlotID == slotID && !prev.Expired(e.clock.Now()) {
			return e.refreshLocked(prev), nil
		}
		e.releaseLocked(prev, releaseSwitched)
	}

	slot, err := e.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrSlotMissing) {
			metrics.IncHoldRequest("slot_not_found")
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("acquire hold: %w", err)
	}
	if !slot.Active {
		metrics.IncHoldRequest("slot_not_found")
		return nil, ErrSlotNotFound
	}
	if slot.Full() {
		metrics.IncHoldRequest("capacity_exhausted")
		return nil, ErrCapacityExhausted
	}

	now := e.clock.Now()
	e.pruneSlotLocked(slotID, now)
	if slot.Occupancy+len(e.holdsBySlot[slotID]) >= slot.Capacity {
		metrics.IncHoldRequest("already_held")
		return nil, ErrAlreadyHeld
	}

	e.nextToken++
	hold := &models.Hold{
		SlotID:    slotID,
		Scope:     slot.Scope,
		SessionID: sessionID,
		Token:     e.nextToken,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}
	e.insertLocked(hold)

	token := hold.Token
	e.timers[sessionID] = time.AfterFunc(e.ttl, func() {
		e.expireHold(sessionID, token)
	})

	e.broadcaster.Publish(slot.Scope, models.Event{
		Type:   models.EventSlotHeld,
		Scope:  slot.Scope,
		SlotID: slotID,
		TTL:    e.TTLSeconds(),
	}, sessionID)

	metrics.IncHoldRequest("granted")
	metrics.SetActiveHolds(len(e.holdBySession))
	utils.GetLogger().Debug("hold granted",
		zap.String("slot", slotID),
		zap.String("session", sessionID),
		zap.Int64("token", token),
	)

	return &models.HoldGrant{
		SlotID:    slotID,
		Token:     token,
		TTL:       e.TTLSeconds(),
		ExpiresAt: hold.ExpiresAt,
	}, nil
}

// refreshLocked extends a live hold to a full TTL and re-arms its
// timer. The token is unchanged; the room saw slot_held already.
func (e *Engine) refreshLocked(hold *models.Hold) *models.HoldGrant {
	hold.ExpiresAt = e.clock.Now().Add(e.ttl)
	if t := e.timers[hold.SessionID]; t != nil {
		t.Stop()
	}
	token := hold.Token
	sessionID := hold.SessionID
	e.timers[sessionID] = time.AfterFunc(e.ttl, func() {
		e.expireHold(sessionID, token)
	})
	return &models.HoldGrant{
		SlotID:    hold.SlotID,
		Token:     token,
		TTL:       e.TTLSeconds(),
		ExpiresAt: hold.ExpiresAt,
	}
}

// ReleaseHold voluntarily drops the session's claim on the slot. Only
// the owning session may release.
func (e *Engine) ReleaseHold(slotID, sessionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	hold := e.holdBySession[sessionID]
	if hold == nil {
		return ErrNoActiveHold
	}
	if hold.SlotID != slotID {
		return ErrNotHolder
	}
	e.releaseLocked(hold, releaseVoluntary)
	return nil
}

// HandleDisconnect frees everything the session owned without waiting
// for TTL expiry. Called by the hub when a connection drops.
func (e *Engine) HandleDisconnect(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if hold := e.holdBySession[sessionID]; hold != nil {
		e.releaseLocked(hold, releaseDisconnect)
	}
}

// ValidHolder reports whether the session owns a live, unexpired hold
// on the slot with the given token. Freshness is judged by the server
// clock at call time.
func (e *Engine) ValidHolder(slotID, sessionID string, token int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validHolderLocked(slotID, sessionID, token)
}

func (e *Engine) validHolderLocked(slotID, sessionID string, token int64) bool {
	hold := e.holdBySession[sessionID]
	return hold != nil &&
		hold.SlotID == slotID &&
		hold.Token == token &&
		!hold.Expired(e.clock.Now())
}

// Snapshot returns the booked and held slot ids for a scope, consistent
// with the latest events published for that scope. Holder identities are
// never included.
func (e *Engine) Snapshot(ctx context.Context, scope string) (booked, held []string, err error) {
	slots, err := e.slots.ListByScope(ctx, scope)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	booked = make([]string, 0)
	held = make([]string, 0)
	for i := range slots {
		s := &slots[i]
		if s.Full() {
			booked = append(booked, s.ID)
			continue
		}
		e.pruneSlotLocked(s.ID, now)
		if len(e.holdsBySlot[s.ID]) > 0 {
			held = append(held, s.ID)
		}
	}
	return booked, held, nil
}

// ListSlotViews returns the scope's slots with remaining capacity and
// hold status folded in, for the portal's initial page render.
func (e *Engine) ListSlotViews(ctx context.Context, scope string) ([]models.SlotView, error) {
	slots, err := e.slots.ListByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	views := make([]models.SlotView, 0, len(slots))
	for i := range slots {
		s := &slots[i]
		e.pruneSlotLocked(s.ID, now)
		views = append(views, models.SlotView{
			ID:        s.ID,
			Scope:     s.Scope,
			Start:     s.Start,
			End:       s.End,
			Capacity:  s.Capacity,
			Remaining: s.Remaining(),
			Held:      len(e.holdsBySlot[s.ID]) > 0,
		})
	}
	return views, nil
}

// StartSweeper runs a periodic backstop scan for expired holds. Each
// hold already has its own expiry timer; the sweep covers timers lost
// to races around release and keeps the active-holds gauge honest.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sweepExpired()
			}
		}
	}()
}

func (e *Engine) sweepExpired() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for _, hold := range e.holdBySession {
		if hold.Expired(now) {
			e.expireLocked(hold)
		}
	}
}

// expireHold is the timer callback for one hold. The token guards
// against firing on a successor hold of the same session.
func (e *Engine) expireHold(sessionID string, token int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hold := e.holdBySession[sessionID]
	if hold == nil || hold.Token != token {
		return
	}
	e.expireLocked(hold)
}

func (e *Engine) expireLocked(hold *models.Hold) {
	e.removeLocked(hold)
	e.broadcaster.Publish(hold.Scope, models.Event{
		Type:   models.EventSlotReleased,
		Scope:  hold.Scope,
		SlotID: hold.SlotID,
	}, "")
	// The holder gets a dedicated notice so its UI can clear the
	// selection and show that the reservation lapsed.
	e.broadcaster.SendTo(hold.SessionID, models.Event{
		Type:   models.EventHoldExpired,
		Scope:  hold.Scope,
		SlotID: hold.SlotID,
	})
	metrics.IncHoldRelease(releaseExpired)
	metrics.SetActiveHolds(len(e.holdBySession))
	utils.GetLogger().Info("hold expired",
		zap.String("slot", hold.SlotID),
		zap.String("session", hold.SessionID),
	)
}

// releaseLocked removes the hold and broadcasts slot_released. Used for
// voluntary release, switch-over, and disconnect; expiry and commit
// consumption have their own paths.
func (e *Engine) releaseLocked(hold *models.Hold, reason string) {
	e.removeLocked(hold)
	e.broadcaster.Publish(hold.Scope, models.Event{
		Type:   models.EventSlotReleased,
		Scope:  hold.Scope,
		SlotID: hold.SlotID,
	}, "")
	metrics.IncHoldRelease(reason)
	metrics.SetActiveHolds(len(e.holdBySession))
	utils.GetLogger().Debug("hold released",
		zap.String("slot", hold.SlotID),
		zap.String("session", hold.SessionID),
		zap.String("reason", reason),
	)
}

// consumeLocked removes the hold without any slot_released event: the
// unit transitions straight to booked, never back to free.
func (e *Engine) consumeLocked(hold *models.Hold) {
	e.removeLocked(hold)
	metrics.IncHoldRelease(releaseConsumed)
	metrics.SetActiveHolds(len(e.holdBySession))
}

func (e *Engine) insertLocked(hold *models.Hold) {
	bySession := e.holdsBySlot[hold.SlotID]
	if bySession == nil {
		bySession = make(map[string]*models.Hold)
		e.holdsBySlot[hold.SlotID] = bySession
	}
	bySession[hold.SessionID] = hold
	e.holdBySession[hold.SessionID] = hold
}

func (e *Engine) removeLocked(hold *models.Hold) {
	if bySession := e.holdsBySlot[hold.SlotID]; bySession != nil {
		delete(bySession, hold.SessionID)
		if len(bySession) == 0 {
			delete(e.holdsBySlot, hold.SlotID)
		}
	}
	delete(e.holdBySession, hold.SessionID)
	if t := e.timers[hold.SessionID]; t != nil {
		t.Stop()
		delete(e.timers, hold.SessionID)
	}
}

// pruneSlotLocked lazily drops expired holds on a slot so capacity
// checks never count a hold the timer has not reaped yet.
func (e *Engine) pruneSlotLocked(slotID string, now time.Time) {
	for _, hold := range e.holdsBySlot[slotID] {
		if hold.Expired(now) {
			e.expireLocked(hold)
		}
	}
}
