// File: database/repository/slot/interface.go
package slotRepo

import (
	"context"

	"slotwise/database"
	"slotwise/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// SlotRepository is the authoritative store for slot capacity and
// permanent occupancy. CommitUnit and Deactivate are the only write
// paths the reservation core uses; Upsert serves the upstream schedule
// producer through the admin API.
type SlotRepository interface {
	GetByID(ctx context.Context, slotID string) (*models.Slot, error)
	ListByScope(ctx context.Context, scope string) ([]models.Slot, error)
	// CommitUnit atomically increments occupancy by one, guarded by
	// occupancy < capacity on an active slot. Returns ErrNoCapacity when
	// the guard fails and ErrSlotMissing when the slot does not exist.
	CommitUnit(ctx context.Context, slotID string) error
	// ReleaseUnit decrements occupancy by one (floor zero). Used only to
	// compensate a failed booking insert after CommitUnit succeeded.
	ReleaseUnit(ctx context.Context, slotID string) error
	Upsert(ctx context.Context, slot *models.Slot) error
	Deactivate(ctx context.Context, slotID string) error
	// ListActiveBefore returns active slots whose end time precedes the
	// given instant (candidates for maintenance deactivation).
	ListActiveBefore(ctx context.Context, cutoff int64) ([]models.Slot, error)
	ListActive(ctx context.Context) ([]models.Slot, error)
	// SetOccupancy overwrites the occupancy counter. Reserved for the
	// maintenance reconciler; the booking path only ever increments.
	SetOccupancy(ctx context.Context, slotID string, occupancy int) error
}

type mongoSlotRepo struct {
	coll *mongo.Collection
}

// NewMongoSlotRepo constructs a new MongoDB SlotRepository.
func NewMongoSlotRepo() SlotRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoSlotRepo{
		coll: db.Collection("slots"),
	}
}
