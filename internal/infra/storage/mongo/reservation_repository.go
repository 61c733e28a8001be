package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("agg_reservation")}
}

func (r *ReservationRepository) ByID(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ReservationRepository) ByCode(ctx context.Context, code string) (*booking.Reservation, error) {
	return r.findOne(ctx, bson.M{"code": code})
}

func (r *ReservationRepository) findOne(ctx context.Context, filter bson.M) (*booking.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, booking.ErrReservationNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) ActiveForUnit(ctx context.Context, unitID catalog.UnitID) ([]*booking.Reservation, error) {
	filter := bson.M{
		"unit_id": string(unitID),
		"status":  bson.M{"$ne": int(booking.StatusCanceled)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ReservationRepository) StaleBefore(ctx context.Context, cutoff time.Time) ([]*booking.Reservation, error) {
	filter := bson.M{
		"status":     int(booking.StatusPending),
		"payment":    int(booking.PayPending),
		"created_at": bson.M{"$lt": cutoff.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*booking.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"guest_id": guestID}, opts)
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*booking.Reservation, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*booking.Reservation
	for cur.Next(ctx) {
		var doc reservationDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *ReservationRepository) Save(ctx context.Context, resv *booking.Reservation) error {
	doc := newReservationDocument(resv)
	filter := bson.M{"_id": doc.ID, "version": resv.Version}
	doc.Version = resv.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	resv.Version = doc.Version
	return nil
}

type reservationDocument struct {
	ID      string        `bson:"_id"`
	Code    string        `bson:"code"`
	UnitID  string        `bson:"unit_id"`
	GuestID string        `bson:"guest_id"`
	Range   rangeDocument `bson:"range"`
	Guests  int           `bson:"guests"`
	Pets    int           `bson:"pets"`

	BasePrice moneyDocument `bson:"base_price"`
	PetFee    moneyDocument `bson:"pet_fee"`
	Discount  moneyDocument `bson:"discount"`
	Total     moneyDocument `bson:"total"`

	PromotionID string `bson:"promotion_id,omitempty"`
	PromoCode   string `bson:"promo_code,omitempty"`

	Status  int `bson:"status"`
	Payment int `bson:"payment"`

	CreatedAt int64 `bson:"created_at"`
	UpdatedAt int64 `bson:"updated_at"`
	Version   int64 `bson:"version"`
}

func newReservationDocument(r *booking.Reservation) reservationDocument {
	return reservationDocument{
		ID:          string(r.ID),
		Code:        r.Code,
		UnitID:      string(r.UnitID),
		GuestID:     r.GuestID,
		Range:       rangeDocument{CheckIn: r.Range.CheckIn.UnixMilli(), CheckOut: r.Range.CheckOut.UnixMilli()},
		Guests:      r.Guests,
		Pets:        r.Pets,
		BasePrice:   newMoneyDocument(r.BasePrice),
		PetFee:      newMoneyDocument(r.PetFee),
		Discount:    newMoneyDocument(r.Discount),
		Total:       newMoneyDocument(r.Total),
		PromotionID: r.PromotionID,
		PromoCode:   r.PromoCode,
		Status:      int(r.Status),
		Payment:     int(r.Payment),
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.UpdatedAt.UnixMilli(),
		Version:     r.Version,
	}
}

func (d reservationDocument) toAggregate() *booking.Reservation {
	dr := daterange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	return &booking.Reservation{
		ID:          booking.ReservationID(d.ID),
		Code:        d.Code,
		UnitID:      catalog.UnitID(d.UnitID),
		GuestID:     d.GuestID,
		Range:       dr,
		Guests:      d.Guests,
		Pets:        d.Pets,
		BasePrice:   d.BasePrice.toMoney(),
		PetFee:      d.PetFee.toMoney(),
		Discount:    d.Discount.toMoney(),
		Total:       d.Total.toMoney(),
		PromotionID: d.PromotionID,
		PromoCode:   d.PromoCode,
		Status:      booking.ReservationStatus(d.Status),
		Payment:     booking.PaymentState(d.Payment),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
