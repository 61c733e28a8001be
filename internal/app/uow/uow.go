package uow

import (
	"context"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
)

// UnitOfWork coordinates repositories inside one transaction boundary. An
// availability check and the reservation insert it guards must run inside
// the same unit of work, opened with the unit's serialization (TxOptions.
// SerializeUnit); otherwise two concurrent creations can both pass the
// check.
type UnitOfWork interface {
	Units() catalog.UnitRepository
	Rates() catalog.RateRepository
	Promotions() promotion.Repository
	Reservations() booking.ReservationRepository
	Payments() payment.PaymentRepository
	Refunds() payment.RefundRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
	// SerializeUnit, when set, serializes this unit of work against every
	// other one opened for the same unit until Commit or Rollback.
	SerializeUnit catalog.UnitID
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}
