package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

const (
	lockTTL       = 15 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// Factory wires the Mongo repositories into the generic UnitOfWork
// interface. Per-unit serialization uses an advisory lock document in the
// unit_locks collection: a unique _id insert either wins the lock or tells
// us someone else holds it, and the expires_at TTL index reaps locks left
// behind by a crashed process.
type Factory struct {
	DB *mongo.Database

	UnitsRepo        catalog.UnitRepository
	RatesRepo        catalog.RateRepository
	PromotionsRepo   promotion.Repository
	ReservationsRepo booking.ReservationRepository
	PaymentsRepo     payment.PaymentRepository
	RefundsRepo      payment.RefundRepository
}

// NewFactory builds a factory with repositories bound to db's collections.
func NewFactory(db *mongo.Database) *Factory {
	return &Factory{
		DB:               db,
		UnitsRepo:        NewUnitRepository(db),
		RatesRepo:        NewRateRepository(db),
		PromotionsRepo:   NewPromotionRepository(db),
		ReservationsRepo: NewReservationRepository(db),
		PaymentsRepo:     NewPaymentRepository(db),
		RefundsRepo:      NewRefundRepository(db),
	}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	u := &Unit{factory: f}
	if opts.SerializeUnit != "" && !opts.ReadOnly {
		if err := f.acquireLock(ctx, opts.SerializeUnit); err != nil {
			return nil, err
		}
		u.lockedUnit = opts.SerializeUnit
	}
	return u, nil
}

func (f *Factory) acquireLock(ctx context.Context, id catalog.UnitID) error {
	col := f.DB.Collection("unit_locks")
	for {
		now := time.Now().UTC()
		doc := bson.M{
			"_id":        "unit:" + string(id),
			"expires_at": now.Add(lockTTL),
			"created_at": now,
		}
		_, err := col.InsertOne(ctx, doc)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return err
		}
		// Holder still active; also reap a lock whose TTL has lapsed but
		// which the background TTL monitor has not deleted yet.
		_, _ = col.DeleteOne(ctx, bson.M{"_id": "unit:" + string(id), "expires_at": bson.M{"$lt": now}})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
}

func (f *Factory) releaseLock(ctx context.Context, id catalog.UnitID) {
	_, _ = f.DB.Collection("unit_locks").DeleteOne(ctx, bson.M{"_id": "unit:" + string(id)})
}

type Unit struct {
	factory    *Factory
	lockedUnit catalog.UnitID
	done       bool
}

func (u *Unit) Units() catalog.UnitRepository               { return u.factory.UnitsRepo }
func (u *Unit) Rates() catalog.RateRepository               { return u.factory.RatesRepo }
func (u *Unit) Promotions() promotion.Repository            { return u.factory.PromotionsRepo }
func (u *Unit) Reservations() booking.ReservationRepository { return u.factory.ReservationsRepo }
func (u *Unit) Payments() payment.PaymentRepository         { return u.factory.PaymentsRepo }
func (u *Unit) Refunds() payment.RefundRepository           { return u.factory.RefundsRepo }

func (u *Unit) Commit(ctx context.Context) error {
	u.release(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.release(ctx)
	return nil
}

func (u *Unit) release(ctx context.Context) {
	if u.done {
		return
	}
	u.done = true
	if u.lockedUnit != "" {
		u.factory.releaseLock(ctx, u.lockedUnit)
	}
}

var _ uow.Factory = (*Factory)(nil)
