package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/events"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

var (
	ErrReservationNotFound = errors.New("booking: reservation not found")
	ErrInvalidGuests       = errors.New("booking: guest count must be positive")
)

type ReservationID string

// ReservationStatus is the lifecycle of the stay itself. Canceled and
// Completed are terminal; the status never regresses.
type ReservationStatus int

const (
	StatusPending ReservationStatus = iota
	StatusConfirmed
	StatusCanceled
	StatusCompleted
)

func (s ReservationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCanceled:
		return "canceled"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// PaymentState mirrors where the money is, as this core understands it.
type PaymentState int

const (
	PayPending PaymentState = iota
	PayPaid
	PayFailed
	PayCanceled
	PayExpired
	PayPartiallyRefunded
	PayRefunded
	PayCancellationPending
)

func (s PaymentState) String() string {
	switch s {
	case PayPending:
		return "pending"
	case PayPaid:
		return "paid"
	case PayFailed:
		return "failed"
	case PayCanceled:
		return "canceled"
	case PayExpired:
		return "expired"
	case PayPartiallyRefunded:
		return "partially_refunded"
	case PayRefunded:
		return "refunded"
	case PayCancellationPending:
		return "cancellation_pending"
	default:
		return "unknown"
	}
}

// Reservation is a booked date range for one unit by one guest. It is never
// deleted; cancellation is a status. All mutation goes through the
// transition methods below, which reject anything the state tables do not
// allow.
type Reservation struct {
	ID      ReservationID
	Code    string
	UnitID  catalog.UnitID
	GuestID string
	Range   daterange.DateRange
	Guests  int
	Pets    int

	BasePrice money.Money
	PetFee    money.Money
	Discount  money.Money
	Total     money.Money

	PromotionID string
	PromoCode   string

	Status  ReservationStatus
	Payment PaymentState

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64

	events.EventRecorder
}

type CreateParams struct {
	ID        ReservationID
	UnitID    catalog.UnitID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Pets      int
	BasePrice money.Money
	PetFee    money.Money
	Discount  money.Money
	Total     money.Money
	PromoID   string
	PromoCode string
	CreatedAt time.Time
}

// NewReservation builds the aggregate in its initial Pending/Pending state.
func NewReservation(p CreateParams) (*Reservation, error) {
	if p.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if p.GuestID == "" {
		return nil, errors.New("booking: guest id required")
	}
	now := p.CreatedAt.UTC()
	r := &Reservation{
		ID:          p.ID,
		Code:        NewReservationCode(string(p.ID)),
		UnitID:      p.UnitID,
		GuestID:     p.GuestID,
		Range:       p.Range,
		Guests:      p.Guests,
		Pets:        p.Pets,
		BasePrice:   p.BasePrice,
		PetFee:      p.PetFee,
		Discount:    p.Discount,
		Total:       p.Total,
		PromotionID: p.PromoID,
		PromoCode:   p.PromoCode,
		Status:      StatusPending,
		Payment:     PayPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.Record(ReservationRequested{ReservationID: r.ID, UnitID: r.UnitID, GuestID: r.GuestID, Range: r.Range, Total: r.Total, At: now})
	return r, nil
}

// NewReservationCode derives the human-readable code handed to guests.
func NewReservationCode(id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	slug := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(slug) > 6 {
		slug = slug[:6]
	}
	return "CHB-" + slug
}

// ConfirmPayment applies a successful gateway confirmation:
// Pending/Pending -> Confirmed/Paid. A retried payment may also arrive after
// an earlier failure, so PayFailed is an accepted source state.
func (r *Reservation) ConfirmPayment(now time.Time) error {
	if r.Status != StatusPending {
		return fault.Consistencyf("reservation %s: cannot confirm payment from status %s", r.ID, r.Status)
	}
	if r.Payment != PayPending && r.Payment != PayFailed {
		return fault.Consistencyf("reservation %s: cannot confirm payment from payment state %s", r.ID, r.Payment)
	}
	r.Status = StatusConfirmed
	r.Payment = PayPaid
	r.touch(now)
	r.Record(ReservationConfirmed{ReservationID: r.ID, UnitID: r.UnitID, Range: r.Range, Total: r.Total, At: r.UpdatedAt})
	return nil
}

// MarkPaymentFailed records a failed charge. The reservation stays Pending
// so the guest can retry.
func (r *Reservation) MarkPaymentFailed(now time.Time) error {
	if r.Status != StatusPending || r.Payment != PayPending {
		return fault.Consistencyf("reservation %s: cannot fail payment from %s/%s", r.ID, r.Status, r.Payment)
	}
	r.Payment = PayFailed
	r.touch(now)
	return nil
}

// MarkPaymentCanceled records a gateway-side cancellation of the intent.
func (r *Reservation) MarkPaymentCanceled(now time.Time) error {
	if r.Status != StatusPending || r.Payment != PayPending {
		return fault.Consistencyf("reservation %s: cannot cancel payment from %s/%s", r.ID, r.Status, r.Payment)
	}
	r.Payment = PayCanceled
	r.touch(now)
	return nil
}

// Expire cancels a stale unpaid reservation: Pending/Pending ->
// Canceled/Expired. Used by the expiration sweeper and by user cancellation
// of unpaid reservations.
func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPending || (r.Payment != PayPending && r.Payment != PayFailed && r.Payment != PayCanceled) {
		return fault.Consistencyf("reservation %s: cannot expire from %s/%s", r.ID, r.Status, r.Payment)
	}
	r.Status = StatusCanceled
	r.Payment = PayExpired
	r.touch(now)
	r.Record(ReservationExpired{ReservationID: r.ID, UnitID: r.UnitID, At: r.UpdatedAt})
	return nil
}

// CancelRefunded cancels a paid reservation whose refund was issued
// automatically: Confirmed/Paid -> Canceled/Refunded.
func (r *Reservation) CancelRefunded(refund money.Money, now time.Time) error {
	if r.Status != StatusConfirmed || r.Payment != PayPaid {
		return fault.Consistencyf("reservation %s: cannot auto-refund from %s/%s", r.ID, r.Status, r.Payment)
	}
	r.Status = StatusCanceled
	r.Payment = PayRefunded
	r.touch(now)
	r.Record(ReservationCanceled{ReservationID: r.ID, UnitID: r.UnitID, Refund: refund, At: r.UpdatedAt})
	return nil
}

// CancelPendingReview cancels a paid reservation too close to check-in for
// an automatic refund: Confirmed/Paid -> Canceled/CancellationPending.
// An administrator settles the refund later.
func (r *Reservation) CancelPendingReview(now time.Time) error {
	if r.Status != StatusConfirmed || r.Payment != PayPaid {
		return fault.Consistencyf("reservation %s: cannot request cancellation review from %s/%s", r.ID, r.Status, r.Payment)
	}
	r.Status = StatusCanceled
	r.Payment = PayCancellationPending
	r.touch(now)
	r.Record(ReservationCanceled{ReservationID: r.ID, UnitID: r.UnitID, Refund: money.Zero(r.Total.Currency), At: r.UpdatedAt})
	return nil
}

// SettleRefund records the outcome of an admin-completed refund. The
// reservation status is left untouched; only the payment state moves to
// Refunded or PartiallyRefunded.
func (r *Reservation) SettleRefund(partial bool, now time.Time) error {
	switch r.Payment {
	case PayPaid, PayCancellationPending, PayPartiallyRefunded:
	default:
		return fault.Consistencyf("reservation %s: cannot settle refund from payment state %s", r.ID, r.Payment)
	}
	if partial {
		r.Payment = PayPartiallyRefunded
	} else {
		r.Payment = PayRefunded
	}
	r.touch(now)
	return nil
}

// Complete marks a stay as finished after check-out.
func (r *Reservation) Complete(now time.Time) error {
	if r.Status != StatusConfirmed {
		return fault.Consistencyf("reservation %s: cannot complete from status %s", r.ID, r.Status)
	}
	r.Status = StatusCompleted
	r.touch(now)
	return nil
}

// Active reports whether the reservation still claims its dates.
func (r *Reservation) Active() bool {
	return r.Status != StatusCanceled
}

// Stale reports whether the sweeper should expire this reservation at the
// given cutoff.
func (r *Reservation) Stale(cutoff time.Time) bool {
	return r.Status == StatusPending && r.Payment == PayPending && r.CreatedAt.Before(cutoff)
}

func (r *Reservation) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// ReservationRepository is the persistence boundary for reservations. Writes
// happen inside the unit-of-work that also performed the availability check.
type ReservationRepository interface {
	ByID(ctx context.Context, id ReservationID) (*Reservation, error)
	ByCode(ctx context.Context, code string) (*Reservation, error)
	// ActiveForUnit returns the non-canceled reservations for a unit.
	ActiveForUnit(ctx context.Context, unitID catalog.UnitID) ([]*Reservation, error)
	// StaleBefore returns Pending/Pending reservations created before cutoff.
	StaleBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error)
	ListByGuest(ctx context.Context, guestID string) ([]*Reservation, error)
	Save(ctx context.Context, r *Reservation) error
}
