package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-advisor/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AdvisoryRepository stores advisory cache rows, one per (vehicle_id, area).
// The unique index is created by database.EnsureIndexes.
type AdvisoryRepository struct {
	collection *mongo.Collection
}

func NewAdvisoryRepository(db *mongo.Database) *AdvisoryRepository {
	return &AdvisoryRepository{
		collection: db.Collection("advisory_cache"),
	}
}

// Find returns nil, nil when no row exists for the key.
func (r *AdvisoryRepository) Find(ctx context.Context, vehicleID int64, area models.ServiceArea) (*models.AdvisoryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var record models.AdvisoryRecord
	err := r.collection.FindOne(ctx, keyFilter(vehicleID, area)).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load advisory record: %w", err)
	}

	return &record, nil
}

// Upsert inserts or overwrites the row for the record's key.
func (r *AdvisoryRepository) Upsert(ctx context.Context, record *models.AdvisoryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := keyFilter(record.VehicleID, record.Area)
	update := upsertUpdate(record)

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// Lost an insert race on a cold key; the row exists now.
		_, err = r.collection.UpdateOne(ctx, filter, update)
	}
	if err != nil {
		return fmt.Errorf("failed to upsert advisory record: %w", err)
	}

	return nil
}

// DeleteExpiredBefore removes rows whose expiry is older than cutoff.
func (r *AdvisoryRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired advisory records: %w", err)
	}
	return result.DeletedCount, nil
}

// upsertUpdate overwrites the payload and timestamps and writes the key only
// when the row is created.
func upsertUpdate(record *models.AdvisoryRecord) bson.M {
	return bson.M{
		"$set": bson.M{
			"payload":    record.Payload,
			"created_at": record.CreatedAt,
			"expires_at": record.ExpiresAt,
		},
		"$setOnInsert": keyFilter(record.VehicleID, record.Area),
	}
}

func keyFilter(vehicleID int64, area models.ServiceArea) bson.M {
	return bson.M{"vehicle_id": vehicleID, "area": area}
}
