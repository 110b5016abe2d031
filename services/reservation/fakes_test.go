package reservation

import (
	"context"
	"errors"
	"sync"
	"time"

	slotRepo "slotwise/database/repository/slot"
	"slotwise/models"
)

// fakeClock is a settable clock; timers still run on real time, so
// tests that need timer-driven expiry use short real TTLs instead.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSlotRepo keeps slots in a map and mirrors the Mongo repo's
// conditional-update semantics for CommitUnit.
type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[string]*models.Slot
}

func newFakeSlotRepo(slots ...*models.Slot) *fakeSlotRepo {
	r := &fakeSlotRepo{slots: make(map[string]*models.Slot)}
	for _, s := range slots {
		r.slots[s.ID] = s
	}
	return r
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, slotID string) (*models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok {
		return nil, slotRepo.ErrSlotMissing
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSlotRepo) ListByScope(ctx context.Context, scope string) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Slot
	for _, s := range r.slots {
		if s.Scope == scope && s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) CommitUnit(ctx context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || !s.Active {
		return slotRepo.ErrSlotMissing
	}
	if s.Occupancy >= s.Capacity {
		return slotRepo.ErrNoCapacity
	}
	s.Occupancy++
	return nil
}

func (r *fakeSlotRepo) ReleaseUnit(ctx context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[slotID]; ok && s.Occupancy > 0 {
		s.Occupancy--
	}
	return nil
}

func (r *fakeSlotRepo) Upsert(ctx context.Context, slot *models.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *slot
	cp.Active = true
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) Deactivate(ctx context.Context, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok {
		return slotRepo.ErrSlotMissing
	}
	s.Active = false
	return nil
}

func (r *fakeSlotRepo) ListActive(ctx context.Context) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Slot
	for _, s := range r.slots {
		if s.Active {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) SetOccupancy(ctx context.Context, slotID string, occupancy int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok {
		return slotRepo.ErrSlotMissing
	}
	s.Occupancy = occupancy
	return nil
}

func (r *fakeSlotRepo) ListActiveBefore(ctx context.Context, cutoff int64) ([]models.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Slot
	for _, s := range r.slots {
		if s.Active && s.End.Before(time.Unix(cutoff, 0)) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) occupancy(slotID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[slotID].Occupancy
}

// fakeBookingRepo records created bookings in memory.
type fakeBookingRepo struct {
	mu         sync.Mutex
	bookings   []models.Booking
	failCreate bool
}

func (r *fakeBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("booking store down")
	}
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bookings {
		if r.bookings[i].ID == id {
			cp := r.bookings[i]
			return &cp, nil
		}
	}
	return nil, errors.New("booking not found")
}

func (r *fakeBookingRepo) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.RequesterID == requesterID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *fakeBookingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

// recordingBroadcaster captures everything the engine publishes.
type recordingBroadcaster struct {
	mu        sync.Mutex
	published []publishedEvent
	direct    []directEvent
}

type publishedEvent struct {
	scope   string
	event   models.Event
	exclude string
}

type directEvent struct {
	sessionID string
	event     models.Event
}

func (b *recordingBroadcaster) Publish(scope string, event models.Event, excludeSession string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedEvent{scope: scope, event: event, exclude: excludeSession})
}

func (b *recordingBroadcaster) SendTo(sessionID string, event models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct = append(b.direct, directEvent{sessionID: sessionID, event: event})
}

func (b *recordingBroadcaster) publishedOfType(typ string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []publishedEvent
	for _, p := range b.published {
		if p.event.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

func (b *recordingBroadcaster) directOfType(typ string) []directEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []directEvent
	for _, d := range b.direct {
		if d.event.Type == typ {
			out = append(out, d)
		}
	}
	return out
}
