// File: handlers/slots.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	slotRepo "slotwise/database/repository/slot"
	"slotwise/models"
	"slotwise/utils"

	"github.com/gin-gonic/gin"
)

// SlotViewLister is the slice of the reservation engine the slot
// handler needs.
type SlotViewLister interface {
	ListSlotViews(ctx context.Context, scope string) ([]models.SlotView, error)
}

// SlotHandler serves the slot listing plus the admin write path used by
// the upstream schedule producer.
type SlotHandler struct {
	Engine SlotViewLister
	Slots  slotRepo.SlotRepository
}

func NewSlotHandler(engine SlotViewLister, slots slotRepo.SlotRepository) *SlotHandler {
	return &SlotHandler{Engine: engine, Slots: slots}
}

// ListSlots returns a scope's slots with remaining capacity and hold
// status for the initial page render. The realtime snapshot remains the
// authoritative view once the client joins the room.
func (h *SlotHandler) ListSlots(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" {
		utils.JSONError(c, http.StatusBadRequest, "invalid_input", "scope query parameter is required")
		return
	}

	views, err := h.Engine.ListSlotViews(c.Request.Context(), scope)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope": scope, "slots": views})
}

// UpsertSlot creates or updates a slot definition. Occupancy is never
// touched here; only the booking path moves it.
func (h *SlotHandler) UpsertSlot(c *gin.Context) {
	var req models.UpsertSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if !req.End.After(req.Start) {
		utils.JSONError(c, http.StatusBadRequest, "invalid_input", "slot end must be after start")
		return
	}

	slot := &models.Slot{
		ID:       req.ID,
		Scope:    req.Scope,
		Start:    req.Start,
		End:      req.End,
		Capacity: req.Capacity,
	}
	if err := h.Slots.Upsert(c.Request.Context(), slot); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": req.ID})
}

// DeactivateSlot soft-disables a slot. Existing bookings keep their
// reference; the slot just stops being offered.
func (h *SlotHandler) DeactivateSlot(c *gin.Context) {
	slotID := c.Param("id")
	if err := h.Slots.Deactivate(c.Request.Context(), slotID); err != nil {
		if errors.Is(err, slotRepo.ErrSlotMissing) {
			utils.JSONError(c, http.StatusNotFound, "slot_not_found", "no such slot")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": slotID, "active": false})
}
