package bookingRepo

import (
	"context"
	"errors"
	"fmt"

	"slotwise/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrBookingMissing = errors.New("booking not found")

func (r *mongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error inserting booking %s: %w", booking.ID, err)
	}
	return nil
}

func (r *mongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking)
	if err == mongo.ErrNoDocuments {
		return nil, ErrBookingMissing
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

func (r *mongoBookingRepo) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.coll.Find(ctx, bson.M{"requester_id": requesterID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for requester %s: %w", requesterID, err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings for requester %s: %w", requesterID, err)
	}
	return bookings, nil
}

func (r *mongoBookingRepo) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"slot_id": slotID})
	if err != nil {
		return 0, fmt.Errorf("error counting bookings for slot %s: %w", slotID, err)
	}
	return n, nil
}
