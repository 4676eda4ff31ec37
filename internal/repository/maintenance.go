package repository

import (
	"context"
	"errors"

	"service-advisor/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaintenanceRepository reads the service log. Records are written elsewhere.
type MaintenanceRepository struct {
	collection *mongo.Collection
}

func NewMaintenanceRepository(db *mongo.Database) *MaintenanceRepository {
	return &MaintenanceRepository{
		collection: db.Collection("service_records"),
	}
}

// LatestObservation returns the newest record for the area. Records without a
// date sort after dated ones.
func (r *MaintenanceRepository) LatestObservation(ctx context.Context, vehicleID int64, area models.ServiceArea) (models.LastServiceObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"vehicle_id": vehicleID, "area": area}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "performed_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	var record models.ServiceRecord
	err := r.collection.FindOne(ctx, filter, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.LastServiceObservation{}, nil
		}
		return models.LastServiceObservation{}, err
	}

	return record.Observation(), nil
}

func (r *MaintenanceRepository) FindByVehicleID(ctx context.Context, vehicleID int64) ([]*models.ServiceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"vehicle_id": vehicleID}, options.Find().SetSort(bson.D{{Key: "performed_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*models.ServiceRecord
	for cursor.Next(ctx) {
		var record models.ServiceRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, cursor.Err()
}
