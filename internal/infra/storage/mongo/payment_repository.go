package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
)

type PaymentRepository struct {
	col *mongo.Collection
}

func NewPaymentRepository(db *mongo.Database) *PaymentRepository {
	return &PaymentRepository{col: db.Collection("agg_payment")}
}

func (r *PaymentRepository) ByID(ctx context.Context, id string) (*payment.Payment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PaymentRepository) ByIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	return r.findOne(ctx, bson.M{"intent_id": intentID})
}

func (r *PaymentRepository) findOne(ctx context.Context, filter bson.M) (*payment.Payment, error) {
	var doc paymentDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PaymentRepository) ForReservation(ctx context.Context, id booking.ReservationID) ([]*payment.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"reservation_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*payment.Payment
	for cur.Next(ctx) {
		var doc paymentDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *PaymentRepository) SucceededForReservation(ctx context.Context, id booking.ReservationID) (*payment.Payment, error) {
	filter := bson.M{
		"reservation_id": string(id),
		"status": bson.M{"$in": bson.A{
			int(payment.StatusSucceeded),
			int(payment.StatusPartiallyRefunded),
			int(payment.StatusRefunded),
		}},
	}
	return r.findOne(ctx, filter)
}

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	doc := newPaymentDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

type paymentDocument struct {
	ID            string        `bson:"_id"`
	ReservationID string        `bson:"reservation_id"`
	IntentID      string        `bson:"intent_id"`
	Amount        moneyDocument `bson:"amount"`
	Status        int           `bson:"status"`
	CardBrand     string        `bson:"card_brand,omitempty"`
	CardLast4     string        `bson:"card_last4,omitempty"`
	CompletedAt   *int64        `bson:"completed_at"`
	CreatedAt     int64         `bson:"created_at"`
	Version       int64         `bson:"version"`
}

func newPaymentDocument(p *payment.Payment) paymentDocument {
	doc := paymentDocument{
		ID:            p.ID,
		ReservationID: string(p.ReservationID),
		IntentID:      p.IntentID,
		Amount:        newMoneyDocument(p.Amount),
		Status:        int(p.Status),
		CardBrand:     p.CardBrand,
		CardLast4:     p.CardLast4,
		CreatedAt:     p.CreatedAt.UnixMilli(),
		Version:       p.Version,
	}
	if p.CompletedAt != nil {
		ms := p.CompletedAt.UnixMilli()
		doc.CompletedAt = &ms
	}
	return doc
}

func (d paymentDocument) toAggregate() *payment.Payment {
	p := &payment.Payment{
		ID:            d.ID,
		ReservationID: booking.ReservationID(d.ReservationID),
		IntentID:      d.IntentID,
		Amount:        d.Amount.toMoney(),
		Status:        payment.Status(d.Status),
		CardBrand:     d.CardBrand,
		CardLast4:     d.CardLast4,
		CreatedAt:     timestampToTime(d.CreatedAt),
		Version:       d.Version,
	}
	if d.CompletedAt != nil {
		t := timestampToTime(*d.CompletedAt)
		p.CompletedAt = &t
	}
	return p
}
