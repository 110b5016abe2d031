// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"

	"slotwise/database"
	"slotwise/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository persists confirmed bookings. The reservation core
// only creates records; later status changes belong to the portal's
// business layer.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error)
	CountBySlot(ctx context.Context, slotID string) (int64, error)
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoBookingRepo{
		coll: db.Collection("bookings"),
	}
}
