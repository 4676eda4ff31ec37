package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"
)

const (
	DefaultDatabase = "service_advisor"

	VehiclesCollection       = "vehicles"
	ServiceRecordsCollection = "service_records"
	AdvisoryCacheCollection  = "advisory_cache"
)

// Connect establishes a connection to MongoDB and ensures indexes exist.
func Connect(ctx context.Context, mongoURI string, logger *zap.Logger) (*mongo.Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cs, err := connstring.ParseAndValidate(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := cs.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}
	logger.Info("connected to MongoDB", zap.String("database", dbName))

	db := client.Database(dbName)
	if err := EnsureIndexes(ctx, db); err != nil {
		logger.Warn("failed to create indexes", zap.Error(err))
	}

	return db, nil
}

// Indexes lists the indexes each collection needs. advisory_cache holds
// exactly one record per (vehicle, area).
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		VehiclesCollection: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		},
		ServiceRecordsCollection: {
			{Keys: bson.D{
				{Key: "vehicle_id", Value: 1},
				{Key: "area", Value: 1},
				{Key: "performed_at", Value: -1},
			}},
		},
		AdvisoryCacheCollection: {
			{
				Keys: bson.D{
					{Key: "vehicle_id", Value: 1},
					{Key: "area", Value: 1},
				},
				Options: options.Index().SetUnique(true).SetName("vehicle_area_unique"),
			},
		},
	}
}

// EnsureIndexes creates the indexes returned by Indexes.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, models := range Indexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}
	return nil
}

// Disconnect closes the MongoDB connection
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// Health checks the database connection health
func Health(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Client().Ping(ctx, nil)
}
