package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
)

type RefundRepository struct {
	col *mongo.Collection
}

func NewRefundRepository(db *mongo.Database) *RefundRepository {
	return &RefundRepository{col: db.Collection("agg_refund")}
}

func (r *RefundRepository) ByGatewayID(ctx context.Context, gatewayRefundID string) (*payment.Refund, error) {
	var doc refundDocument
	if err := r.col.FindOne(ctx, bson.M{"gateway_refund_id": gatewayRefundID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, payment.ErrRefundNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *RefundRepository) ForPayment(ctx context.Context, paymentID string) ([]*payment.Refund, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"payment_id": paymentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*payment.Refund
	for cur.Next(ctx) {
		var doc refundDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *RefundRepository) Save(ctx context.Context, refund *payment.Refund) error {
	doc := newRefundDocument(refund)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type refundDocument struct {
	ID              string        `bson:"_id"`
	PaymentID       string        `bson:"payment_id"`
	GatewayRefundID string        `bson:"gateway_refund_id"`
	Amount          moneyDocument `bson:"amount"`
	Status          int           `bson:"status"`
	Reason          string        `bson:"reason,omitempty"`
	IssuedBy        string        `bson:"issued_by,omitempty"`
	CompletedAt     *int64        `bson:"completed_at"`
	CreatedAt       int64         `bson:"created_at"`
}

func newRefundDocument(r *payment.Refund) refundDocument {
	doc := refundDocument{
		ID:              r.ID,
		PaymentID:       r.PaymentID,
		GatewayRefundID: r.GatewayRefundID,
		Amount:          newMoneyDocument(r.Amount),
		Status:          int(r.Status),
		Reason:          r.Reason,
		IssuedBy:        r.IssuedBy,
		CreatedAt:       r.CreatedAt.UnixMilli(),
	}
	if r.CompletedAt != nil {
		ms := r.CompletedAt.UnixMilli()
		doc.CompletedAt = &ms
	}
	return doc
}

func (d refundDocument) toAggregate() *payment.Refund {
	r := &payment.Refund{
		ID:              d.ID,
		PaymentID:       d.PaymentID,
		GatewayRefundID: d.GatewayRefundID,
		Amount:          d.Amount.toMoney(),
		Status:          payment.RefundStatus(d.Status),
		Reason:          d.Reason,
		IssuedBy:        d.IssuedBy,
		CreatedAt:       timestampToTime(d.CreatedAt),
	}
	if d.CompletedAt != nil {
		t := timestampToTime(*d.CompletedAt)
		r.CompletedAt = &t
	}
	return r
}
