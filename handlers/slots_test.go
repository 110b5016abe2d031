package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	slotRepo "slotwise/database/repository/slot"
	"slotwise/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubViewLister struct {
	views    []models.SlotView
	gotScope string
}

func (s *stubViewLister) ListSlotViews(ctx context.Context, scope string) ([]models.SlotView, error) {
	s.gotScope = scope
	return s.views, nil
}

type stubSlotStore struct {
	slots       map[string]*models.Slot
	deactivated []string
}

func (s *stubSlotStore) GetByID(ctx context.Context, slotID string) (*models.Slot, error) {
	if slot, ok := s.slots[slotID]; ok {
		return slot, nil
	}
	return nil, slotRepo.ErrSlotMissing
}

func (s *stubSlotStore) ListByScope(ctx context.Context, scope string) ([]models.Slot, error) {
	return nil, nil
}

func (s *stubSlotStore) CommitUnit(ctx context.Context, slotID string) error  { return nil }
func (s *stubSlotStore) ReleaseUnit(ctx context.Context, slotID string) error { return nil }

func (s *stubSlotStore) Upsert(ctx context.Context, slot *models.Slot) error {
	if s.slots == nil {
		s.slots = make(map[string]*models.Slot)
	}
	s.slots[slot.ID] = slot
	return nil
}

func (s *stubSlotStore) Deactivate(ctx context.Context, slotID string) error {
	if _, ok := s.slots[slotID]; !ok {
		return slotRepo.ErrSlotMissing
	}
	s.deactivated = append(s.deactivated, slotID)
	return nil
}

func (s *stubSlotStore) ListActive(ctx context.Context) ([]models.Slot, error) { return nil, nil }

func (s *stubSlotStore) SetOccupancy(ctx context.Context, slotID string, occupancy int) error {
	return nil
}

func (s *stubSlotStore) ListActiveBefore(ctx context.Context, cutoff int64) ([]models.Slot, error) {
	return nil, nil
}

func newSlotRouter(lister SlotViewLister, store slotRepo.SlotRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewSlotHandler(lister, store)
	r.GET("/api/slots", h.ListSlots)
	r.POST("/api/admin/slots", h.UpsertSlot)
	r.DELETE("/api/admin/slots/:id", h.DeactivateSlot)
	return r
}

func TestListSlotsEndpoint(t *testing.T) {
	lister := &stubViewLister{views: []models.SlotView{
		{ID: "s1", Scope: "2026-09-02", Capacity: 1, Remaining: 1},
	}}
	r := newSlotRouter(lister, &stubSlotStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/slots?scope=2026-09-02", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-09-02", lister.gotScope)
	assert.Contains(t, w.Body.String(), `"s1"`)
}

func TestListSlotsRequiresScope(t *testing.T) {
	r := newSlotRouter(&stubViewLister{}, &stubSlotStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/slots", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertSlotEndpoint(t *testing.T) {
	store := &stubSlotStore{}
	r := newSlotRouter(&stubViewLister{}, store)

	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	w := postJSON(t, r, "/api/admin/slots", models.UpsertSlotRequest{
		ID:       "s1",
		Scope:    "2026-09-02",
		Start:    start,
		End:      start.Add(30 * time.Minute),
		Capacity: 2,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, store.slots, "s1")
	assert.Equal(t, 2, store.slots["s1"].Capacity)
	// Occupancy is owned by the booking path, never by admin writes.
	assert.Equal(t, 0, store.slots["s1"].Occupancy)
}

func TestUpsertSlotRejectsInvertedWindow(t *testing.T) {
	r := newSlotRouter(&stubViewLister{}, &stubSlotStore{})

	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	w := postJSON(t, r, "/api/admin/slots", models.UpsertSlotRequest{
		ID:       "s1",
		Scope:    "2026-09-02",
		Start:    start,
		End:      start.Add(-time.Minute),
		Capacity: 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateSlotEndpoint(t *testing.T) {
	store := &stubSlotStore{slots: map[string]*models.Slot{
		"s1": {ID: "s1"},
	}}
	r := newSlotRouter(&stubViewLister{}, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/admin/slots/s1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"s1"}, store.deactivated)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/admin/slots/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
