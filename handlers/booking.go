// File: handlers/booking.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	bookingRepo "slotwise/database/repository/booking"
	"slotwise/models"
	"slotwise/services/reservation"
	"slotwise/utils"

	"github.com/gin-gonic/gin"
)

// BookingCommitter is the slice of the reservation engine the booking
// handler needs.
type BookingCommitter interface {
	CommitBooking(ctx context.Context, req models.CommitBookingRequest, requesterID string) (*models.Booking, error)
}

// BookingHandler exposes the commit endpoint plus read views over
// confirmed bookings.
type BookingHandler struct {
	Engine   BookingCommitter
	Bookings bookingRepo.BookingRepository
}

func NewBookingHandler(engine BookingCommitter, bookings bookingRepo.BookingRepository) *BookingHandler {
	return &BookingHandler{Engine: engine, Bookings: bookings}
}

// CommitBooking converts the caller's live hold into a booking. The
// requester identity comes from the auth middleware; session id and
// hold token come from the realtime channel the client holds open.
func (h *BookingHandler) CommitBooking(c *gin.Context) {
	var req models.CommitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	requesterID := c.GetString("userID")
	booking, err := h.Engine.CommitBooking(c.Request.Context(), req, requesterID)
	if err != nil {
		status, code := commitErrorStatus(err)
		utils.JSONError(c, status, code, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// commitErrorStatus maps reservation errors onto HTTP statuses. The
// contention outcomes are conflict-class responses the UI treats as
// "someone else got there first", not failures.
func commitErrorStatus(err error) (int, string) {
	if code := reservation.ErrorCode(err); code != "" {
		switch {
		case errors.Is(err, reservation.ErrSlotNotFound):
			return http.StatusNotFound, code
		case errors.Is(err, reservation.ErrValidationFailed):
			return http.StatusUnprocessableEntity, code
		default:
			return http.StatusConflict, code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// ListMyBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	requesterID := c.GetString("userID")
	bookings, err := h.Bookings.ListByRequester(c.Request.Context(), requesterID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetBooking returns one booking. Callers may only read their own.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.Bookings.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingMissing) {
			utils.JSONError(c, http.StatusNotFound, "booking_not_found", "no such booking")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if booking.RequesterID != c.GetString("userID") {
		utils.JSONError(c, http.StatusForbidden, "forbidden", "not your booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
