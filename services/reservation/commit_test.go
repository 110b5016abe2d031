package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"slotwise/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitReq(slotID, sessionID string, token int64) models.CommitBookingRequest {
	return models.CommitBookingRequest{
		SlotID:    slotID,
		SessionID: sessionID,
		HoldToken: token,
		Contact:   "pat@example.com",
	}
}

func TestCommitBooking(t *testing.T) {
	e, repo, bookings, bc, clock := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	booking, err := e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
	assert.Equal(t, "s1", booking.SlotID)
	assert.Equal(t, "user-1", booking.RequesterID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, clock.Now(), booking.CreatedAt)

	assert.Equal(t, 1, repo.occupancy("s1"))
	assert.Equal(t, 1, bookings.count())

	booked := bc.publishedOfType(models.EventSlotBooked)
	require.Len(t, booked, 1)
	assert.Equal(t, "s1", booked[0].event.SlotID)
	assert.Empty(t, booked[0].exclude)

	// The hold was consumed, never released back to the room.
	assert.Empty(t, bc.publishedOfType(models.EventSlotReleased))
	assert.False(t, e.ValidHolder("s1", "sess-a", grant.Token))
}

func TestCommitBookingWithoutHold(t *testing.T) {
	e, repo, bookings, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))

	_, err := e.CommitBooking(context.Background(), commitReq("s1", "sess-a", 1), "user-1")
	assert.ErrorIs(t, err, ErrHoldInvalid)
	assert.Equal(t, 0, repo.occupancy("s1"))
	assert.Equal(t, 0, bookings.count())
}

func TestCommitBookingStaleToken(t *testing.T) {
	e, _, _, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token+1), "user-1")
	assert.ErrorIs(t, err, ErrHoldInvalid)

	// The real token still works.
	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	assert.NoError(t, err)
}

func TestCommitBookingExpiredHold(t *testing.T) {
	e, repo, _, _, clock := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	clock.Advance(91 * time.Second)
	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	assert.ErrorIs(t, err, ErrHoldInvalid)
	assert.Equal(t, 0, repo.occupancy("s1"))
}

func TestCommitBookingWrongSession(t *testing.T) {
	e, _, _, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-b", grant.Token), "user-2")
	assert.ErrorIs(t, err, ErrHoldInvalid)
}

func TestCommitBookingPastStart(t *testing.T) {
	slot := testSlot("s1", "2026-09-02", 1)
	e, repo, _, _, clock := newTestEngine(90*time.Second, slot)
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	// Long TTL keeps the hold alive while the clock crosses the slot's
	// start time.
	e.mu.Lock()
	e.holdBySession["sess-a"].ExpiresAt = slot.Start.Add(time.Hour)
	e.mu.Unlock()
	clock.Advance(slot.Start.Sub(clock.Now()))

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "validation_failed", ErrorCode(err))
	assert.Equal(t, 0, repo.occupancy("s1"))
}

func TestCommitBookingDeactivatedSlot(t *testing.T) {
	e, repo, _, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, "s1"))

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestCommitBookingInsertFailureRollsBack(t *testing.T) {
	e, repo, bookings, bc, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	bookings.failCreate = true
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	require.Error(t, err)
	assert.Empty(t, ErrorCode(err), "storage failures carry no client-facing code")

	// Occupancy was rolled back and the hold reinstated, so a retry
	// with the same token succeeds once the store recovers.
	assert.Equal(t, 0, repo.occupancy("s1"))
	assert.True(t, e.ValidHolder("s1", "sess-a", grant.Token))
	assert.Empty(t, bc.publishedOfType(models.EventSlotBooked))

	bookings.failCreate = false
	booking, err := e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", booking.SlotID)
	assert.Equal(t, 1, repo.occupancy("s1"))
}

func TestCommitBookingConcurrentSameHold(t *testing.T) {
	e, repo, bookings, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 1))
	ctx := context.Background()

	grant, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)

	// Double-submit of the same commit: exactly one wins, the other
	// finds the hold already consumed.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CommitBooking(ctx, commitReq("s1", "sess-a", grant.Token), "user-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, invalid int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrHoldInvalid):
			invalid++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, invalid)
	assert.Equal(t, 1, repo.occupancy("s1"))
	assert.Equal(t, 1, bookings.count())
}

func TestCommitBookingMultiCapacity(t *testing.T) {
	e, repo, bookings, _, _ := newTestEngine(90*time.Second, testSlot("s1", "2026-09-02", 2))
	ctx := context.Background()

	a, err := e.AcquireHold(ctx, "s1", "sess-a")
	require.NoError(t, err)
	b, err := e.AcquireHold(ctx, "s1", "sess-b")
	require.NoError(t, err)

	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-a", a.Token), "user-1")
	require.NoError(t, err)
	_, err = e.CommitBooking(ctx, commitReq("s1", "sess-b", b.Token), "user-2")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.occupancy("s1"))
	assert.Equal(t, 2, bookings.count())

	_, err = e.AcquireHold(ctx, "s1", "sess-c")
	assert.ErrorIs(t, err, ErrCapacityExhausted)
}
