package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ProcessedStore records gateway event IDs that were already applied, so a
// replayed webhook delivery is dropped instead of re-applied.
type ProcessedStore struct {
	col *mongo.Collection
}

func NewProcessedStore(db *mongo.Database) *ProcessedStore {
	return &ProcessedStore{col: db.Collection("app_processed_events")}
}

func (s *ProcessedStore) Seen(ctx context.Context, eventID string) (bool, error) {
	err := s.col.FindOne(ctx, bson.M{"_id": eventID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *ProcessedStore) Mark(ctx context.Context, eventID string) error {
	doc := bson.M{"_id": eventID, "created_at": time.Now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}
