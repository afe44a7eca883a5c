package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bosocmputer/trade_compliance_ocr/internal/common"
)

const analysesCollection = "consignment_analyses"

// AnalysisRecord is what the service hands to persistence after a successful analysis.
type AnalysisRecord struct {
	RequestID     string                 `bson:"request_id" json:"request_id"`
	ConsignmentID string                 `bson:"consignment_id,omitempty" json:"consignment_id,omitempty"`
	Provider      string                 `bson:"provider" json:"provider"`
	CacheHit      bool                   `bson:"cache_hit" json:"cache_hit"`
	Options       common.AnalysisOptions `bson:"options" json:"options"`
	Result        *common.AnalysisResult `bson:"result" json:"result"`
	CreatedAt     time.Time              `bson:"created_at" json:"created_at"`
}

// AnalysisStore persists analysis results for downstream collaborators.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, record AnalysisRecord) error
	LatestForConsignment(ctx context.Context, consignmentID string) (*AnalysisRecord, error)
}

// ErrAnalysisNotFound is returned when a consignment has no stored analysis.
var ErrAnalysisNotFound = errors.New("analysis not found")

// MongoAnalysisStore writes analysis records to MongoDB.
type MongoAnalysisStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo opens a MongoDB connection and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri, dbName string) (*MongoAnalysisStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	slog.Info("connected to MongoDB", "database", dbName)
	return &MongoAnalysisStore{
		client:     client,
		collection: client.Database(dbName).Collection(analysesCollection),
	}, nil
}

// SaveAnalysis inserts one analysis record.
func (s *MongoAnalysisStore) SaveAnalysis(ctx context.Context, record AnalysisRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert analysis record: %w", err)
	}
	return nil
}

// LatestForConsignment returns the most recent record stored for a consignment.
func (s *MongoAnalysisStore) LatestForConsignment(ctx context.Context, consignmentID string) (*AnalysisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var record AnalysisRecord
	err := s.collection.FindOne(ctx, bson.M{"consignment_id": consignmentID}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w for consignment: %s", ErrAnalysisNotFound, consignmentID)
		}
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	return &record, nil
}

// Close disconnects from MongoDB.
func (s *MongoAnalysisStore) Close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		slog.Warn("MongoDB disconnect failed", "error", err)
		return
	}
	slog.Info("MongoDB connection closed")
}
