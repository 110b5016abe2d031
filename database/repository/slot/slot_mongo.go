package slotRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotwise/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Sentinel errors surfaced by the atomic write paths.
var (
	ErrSlotMissing = errors.New("slot not found")
	ErrNoCapacity  = errors.New("slot capacity exhausted")
)

func (r *mongoSlotRepo) GetByID(ctx context.Context, slotID string) (*models.Slot, error) {
	var slot models.Slot
	err := r.coll.FindOne(ctx, bson.M{"id": slotID}).Decode(&slot)
	if err == mongo.ErrNoDocuments {
		return nil, ErrSlotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching slot %s: %w", slotID, err)
	}
	return &slot, nil
}

func (r *mongoSlotRepo) ListByScope(ctx context.Context, scope string) ([]models.Slot, error) {
	opts := options.Find().SetSort(bson.M{"start": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"scope": scope, "active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing slots for scope %s: %w", scope, err)
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding slots for scope %s: %w", scope, err)
	}
	return slots, nil
}

// CommitUnit relies on Mongo's single-document atomicity: the filter
// re-checks occupancy < capacity so two racing commits can never push
// occupancy past capacity regardless of what the caller believed.
func (r *mongoSlotRepo) CommitUnit(ctx context.Context, slotID string) error {
	filter := bson.M{
		"id":     slotID,
		"active": true,
		"$expr":  bson.M{"$lt": bson.A{"$occupancy", "$capacity"}},
	}
	update := bson.M{
		"$inc": bson.M{"occupancy": 1},
		"$set": bson.M{"updated_at": time.Now()},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error committing unit on slot %s: %w", slotID, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing slot from an exhausted one.
		n, err := r.coll.CountDocuments(ctx, bson.M{"id": slotID, "active": true})
		if err != nil {
			return fmt.Errorf("error checking slot %s existence: %w", slotID, err)
		}
		if n == 0 {
			return ErrSlotMissing
		}
		return ErrNoCapacity
	}
	return nil
}

func (r *mongoSlotRepo) ReleaseUnit(ctx context.Context, slotID string) error {
	filter := bson.M{
		"id":    slotID,
		"$expr": bson.M{"$gt": bson.A{"$occupancy", 0}},
	}
	update := bson.M{
		"$inc": bson.M{"occupancy": -1},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error releasing unit on slot %s: %w", slotID, err)
	}
	return nil
}

func (r *mongoSlotRepo) Upsert(ctx context.Context, slot *models.Slot) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"scope":      slot.Scope,
			"start":      slot.Start,
			"end":        slot.End,
			"capacity":   slot.Capacity,
			"active":     true,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"id":         slot.ID,
			"occupancy":  0,
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": slot.ID}, update, opts); err != nil {
		return fmt.Errorf("error upserting slot %s: %w", slot.ID, err)
	}
	return nil
}

// Deactivate soft-disables a slot. The record stays behind any bookings
// that reference it; nothing ever deletes slot documents.
func (r *mongoSlotRepo) Deactivate(ctx context.Context, slotID string) error {
	update := bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": slotID}, update)
	if err != nil {
		return fmt.Errorf("error deactivating slot %s: %w", slotID, err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotMissing
	}
	return nil
}

func (r *mongoSlotRepo) ListActive(ctx context.Context) ([]models.Slot, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("error listing active slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding active slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepo) SetOccupancy(ctx context.Context, slotID string, occupancy int) error {
	update := bson.M{"$set": bson.M{"occupancy": occupancy, "updated_at": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": slotID}, update)
	if err != nil {
		return fmt.Errorf("error setting occupancy on slot %s: %w", slotID, err)
	}
	if res.MatchedCount == 0 {
		return ErrSlotMissing
	}
	return nil
}

func (r *mongoSlotRepo) ListActiveBefore(ctx context.Context, cutoff int64) ([]models.Slot, error) {
	filter := bson.M{
		"active": true,
		"end":    bson.M{"$lt": time.Unix(cutoff, 0)},
	}
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing expired slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding expired slots: %w", err)
	}
	return slots, nil
}
