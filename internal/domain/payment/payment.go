package payment

import (
	"context"
	"errors"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

var (
	ErrPaymentNotFound = errors.New("payment: not found")
	ErrRefundNotFound  = errors.New("payment: refund not found")
)

// Status mirrors the gateway's view of an intent. Succeeded, Canceled and
// the refunded states are terminal in the sense that a stale event can
// never move the payment back.
type Status int

const (
	StatusPending Status = iota
	StatusSucceeded
	StatusFailed
	StatusCanceled
	StatusPartiallyRefunded
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	case StatusPartiallyRefunded:
		return "partially_refunded"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// rank orders statuses so transitions stay monotonic under out-of-order
// webhook delivery. A status may only move to a strictly higher rank,
// except Failed -> Succeeded which models a retried charge.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusFailed:
		return 1
	case StatusCanceled:
		return 2
	case StatusSucceeded:
		return 3
	case StatusPartiallyRefunded:
		return 4
	case StatusRefunded:
		return 5
	default:
		return -1
	}
}

// Payment is the local record of one gateway intent for one reservation.
type Payment struct {
	ID            string
	ReservationID booking.ReservationID
	IntentID      string
	Amount        money.Money
	Status        Status
	CardBrand     string
	CardLast4     string
	CompletedAt   *time.Time
	CreatedAt     time.Time
	Version       int64
}

func New(id string, reservationID booking.ReservationID, intentID string, amount money.Money, now time.Time) *Payment {
	return &Payment{
		ID:            id,
		ReservationID: reservationID,
		IntentID:      intentID,
		Amount:        amount,
		Status:        StatusPending,
		CreatedAt:     now.UTC(),
	}
}

// Apply moves the payment to the given status if that is a forward move.
// It returns (false, nil) when the event is stale (already applied or
// superseded by a later state) so callers can drop duplicates quietly.
func (p *Payment) Apply(next Status, now time.Time) (bool, error) {
	if next == p.Status {
		return false, nil
	}
	if next == StatusSucceeded && p.Status == StatusFailed {
		p.set(next, now)
		return true, nil
	}
	if next.rank() <= p.Status.rank() {
		return false, nil
	}
	if next.rank() < 0 {
		return false, fault.Consistencyf("payment %s: unknown target status", p.ID)
	}
	p.set(next, now)
	return true, nil
}

// Succeeded reports whether money was captured for this payment.
func (p *Payment) Succeeded() bool {
	switch p.Status {
	case StatusSucceeded, StatusPartiallyRefunded, StatusRefunded:
		return true
	default:
		return false
	}
}

func (p *Payment) set(next Status, now time.Time) {
	p.Status = next
	if next == StatusSucceeded || next == StatusRefunded {
		t := now.UTC()
		p.CompletedAt = &t
	}
}

type PaymentRepository interface {
	ByID(ctx context.Context, id string) (*Payment, error)
	ByIntentID(ctx context.Context, intentID string) (*Payment, error)
	// ForReservation returns a reservation's payments, newest first.
	ForReservation(ctx context.Context, id booking.ReservationID) ([]*Payment, error)
	// SucceededForReservation returns the captured payment for a
	// reservation, or ErrPaymentNotFound when none exists.
	SucceededForReservation(ctx context.Context, id booking.ReservationID) (*Payment, error)
	Save(ctx context.Context, p *Payment) error
}
