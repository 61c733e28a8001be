package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/app/outbox"
	infraoutbox "github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/outbox"
)

const (
	outboxStatusPending = "pending"
	outboxStatusClaimed = "claimed"
	outboxStatusSent    = "sent"

	claimTimeout = 30 * time.Second
)

// OutboxStore persists outbox records in the app_outbox collection. Claim
// is a FindOneAndUpdate so only one worker gets a record; a claim older
// than claimTimeout is considered abandoned and can be re-claimed.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("app_outbox")}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := outboxDocument{
		ID:         record.ID,
		Name:       record.Name,
		Aggregate:  record.Aggregate,
		Payload:    record.Payload,
		Headers:    record.Headers,
		OccurredAt: record.OccurredAt.UnixMilli(),
		Status:     outboxStatusPending,
		CreatedAt:  time.Now().UTC().UnixMilli(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"$or": bson.A{
			bson.M{"status": outboxStatusPending, "retry_at": bson.M{"$lte": now.UnixMilli()}},
			bson.M{"status": outboxStatusClaimed, "claimed_at": bson.M{"$lt": now.Add(-claimTimeout).UnixMilli()}},
		},
	}
	update := bson.M{"$set": bson.M{
		"status":     outboxStatusClaimed,
		"claimed_by": workerID,
		"claimed_at": now.UnixMilli(),
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)
	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &infraoutbox.EventDocument{
		ID:         doc.ID,
		Name:       doc.Name,
		Aggregate:  doc.Aggregate,
		Payload:    doc.Payload,
		Headers:    doc.Headers,
		OccurredAt: timestampToTime(doc.OccurredAt),
		Attempts:   doc.Attempts,
	}, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{
		"status":  outboxStatusSent,
		"sent_at": time.Now().UTC().UnixMilli(),
	}}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"status":     outboxStatusPending,
			"retry_at":   retryAt.UnixMilli(),
			"last_error": reason,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

type outboxDocument struct {
	ID         string            `bson:"_id"`
	Name       string            `bson:"name"`
	Aggregate  string            `bson:"aggregate"`
	Payload    []byte            `bson:"payload"`
	Headers    map[string]string `bson:"headers,omitempty"`
	OccurredAt int64             `bson:"occurred_at"`
	Status     string            `bson:"status"`
	Attempts   int               `bson:"attempts"`
	RetryAt    int64             `bson:"retry_at"`
	ClaimedBy  string            `bson:"claimed_by,omitempty"`
	ClaimedAt  int64             `bson:"claimed_at,omitempty"`
	LastError  string            `bson:"last_error,omitempty"`
	CreatedAt  int64             `bson:"created_at"`
	SentAt     int64             `bson:"sent_at,omitempty"`
}

var (
	_ appoutbox.Outbox  = (*OutboxStore)(nil)
	_ infraoutbox.Store = (*OutboxStore)(nil)
)
