package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires the in-memory repositories into a unit-of-work boundary.
// When TxOptions.SerializeUnit is set, Begin acquires that unit's mutex and
// holds it until Commit or Rollback; this is what makes check-and-reserve
// one logical unit and closes the availability race.
type Factory struct {
	Units        *UnitRepository
	Rates        *RateRepository
	Promotions   *PromotionRepository
	Reservations *ReservationRepository
	Payments     *PaymentRepository
	Refunds      *RefundRepository

	mu        sync.Mutex
	unitLocks map[catalog.UnitID]*sync.Mutex
}

// NewFactory builds a factory over fresh repositories.
func NewFactory() *Factory {
	return &Factory{
		Units:        NewUnitRepository(),
		Rates:        NewRateRepository(),
		Promotions:   NewPromotionRepository(),
		Reservations: NewReservationRepository(),
		Payments:     NewPaymentRepository(),
		Refunds:      NewRefundRepository(),
	}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Units == nil || f.Reservations == nil || f.Payments == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{factory: f}
	if opts.SerializeUnit != "" && !opts.ReadOnly {
		lock := f.lockFor(opts.SerializeUnit)
		lock.Lock()
		u.release = lock.Unlock
	}
	return u, nil
}

func (f *Factory) lockFor(id catalog.UnitID) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unitLocks == nil {
		f.unitLocks = make(map[catalog.UnitID]*sync.Mutex)
	}
	lock, ok := f.unitLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		f.unitLocks[id] = lock
	}
	return lock
}

// Unit is a lightweight uow.UnitOfWork backed by the in-memory stores. It
// offers no rollback of writes; callers order their writes so a failed
// operation leaves well-defined state, as the SQL implementation's
// transaction would.
type Unit struct {
	factory *Factory
	mu      sync.Mutex
	release func()
}

func (u *Unit) Units() catalog.UnitRepository               { return u.factory.Units }
func (u *Unit) Rates() catalog.RateRepository               { return u.factory.Rates }
func (u *Unit) Promotions() promotion.Repository            { return u.factory.Promotions }
func (u *Unit) Reservations() booking.ReservationRepository { return u.factory.Reservations }
func (u *Unit) Payments() payment.PaymentRepository         { return u.factory.Payments }
func (u *Unit) Refunds() payment.RefundRepository           { return u.factory.Refunds }

func (u *Unit) Commit(ctx context.Context) error {
	u.unlock()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.unlock()
	return nil
}

func (u *Unit) unlock() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.release != nil {
		u.release()
		u.release = nil
	}
}

var _ uow.Factory = (*Factory)(nil)
