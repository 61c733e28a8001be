package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/clock"
)

// Gateway event types this core reconciles.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
	EventRefundUpdated    = "refund.updated"
	EventChargeRefunded   = "charge.refunded"
)

// Event is an asynchronous gateway notification, delivered by webhook or by
// a broker topic. Delivery may duplicate and reorder.
type Event struct {
	ID       string
	Type     string
	IntentID string
	RefundID string
	Status   string
	At       time.Time
}

// ProcessedStore remembers which event ids were already applied so
// re-delivery stays a no-op.
type ProcessedStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Reconciler applies gateway events to local reservation and payment state.
// It is idempotent per event id and tolerates out-of-order delivery: every
// transition it applies is monotonic, so a stale event can never regress a
// terminal state.
type Reconciler struct {
	uow       uow.Factory
	processed ProcessedStore
	notifier  policies.NotifierPort
	clock     clock.Clock
	logger    *slog.Logger
}

func NewReconciler(factory uow.Factory, processed ProcessedStore, notifier policies.NotifierPort, clk clock.Clock, logger *slog.Logger) *Reconciler {
	return &Reconciler{uow: factory, processed: processed, notifier: notifier, clock: clk, logger: logger}
}

// Apply reconciles one event. Events for intents or refunds this core does
// not know are logged and dropped; they belong to another integration.
func (r *Reconciler) Apply(ctx context.Context, ev Event) error {
	if ev.ID != "" {
		seen, err := r.processed.Seen(ctx, ev.ID)
		if err != nil {
			return err
		}
		if seen {
			r.logger.Debug("duplicate gateway event ignored", "event_id", ev.ID, "type", ev.Type)
			return nil
		}
	}

	var err error
	switch ev.Type {
	case EventPaymentSucceeded, EventPaymentFailed, EventPaymentCanceled:
		err = r.applyIntentEvent(ctx, ev)
	case EventRefundUpdated, EventChargeRefunded:
		err = r.applyRefundEvent(ctx, ev)
	default:
		r.logger.Debug("unhandled gateway event type", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
	if err != nil {
		return err
	}
	if ev.ID != "" {
		return r.processed.Mark(ctx, ev.ID)
	}
	return nil
}

func (r *Reconciler) applyIntentEvent(ctx context.Context, ev Event) error {
	probe, err := r.findByIntent(ctx, ev.IntentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			r.logger.Info("gateway event for unknown intent ignored",
				"event_id", ev.ID, "intent_id", ev.IntentID)
			return nil
		}
		return err
	}

	unit, err := r.uow.Begin(ctx, uow.TxOptions{SerializeUnit: probe.unitID})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	pay, err := unit.Payments().ByIntentID(ctx, ev.IntentID)
	if err != nil {
		return err
	}
	resv, err := unit.Reservations().ByID(ctx, pay.ReservationID)
	if err != nil {
		return err
	}

	now := r.clock.Now()
	confirmed := false
	switch ev.Type {
	case EventPaymentSucceeded:
		moved, err := pay.Apply(payment.StatusSucceeded, now)
		if err != nil {
			return err
		}
		if moved {
			if resv.Status == booking.StatusPending {
				if err := resv.ConfirmPayment(now); err != nil {
					return err
				}
				confirmed = true
			} else {
				// The reservation moved on (canceled, expired); keep the
				// payment fact, leave the reservation alone.
				r.logger.Warn("payment succeeded for a reservation that moved on",
					"reservation_id", resv.ID, "status", resv.Status.String())
			}
		}
	case EventPaymentFailed:
		if _, err := pay.Apply(payment.StatusFailed, now); err != nil {
			return err
		}
		if resv.Status == booking.StatusPending && resv.Payment == booking.PayPending {
			if err := resv.MarkPaymentFailed(now); err != nil {
				return err
			}
		}
	case EventPaymentCanceled:
		if _, err := pay.Apply(payment.StatusCanceled, now); err != nil {
			return err
		}
		if resv.Status == booking.StatusPending && resv.Payment == booking.PayPending {
			if err := resv.MarkPaymentCanceled(now); err != nil {
				return err
			}
		}
	}

	if err := unit.Payments().Save(ctx, pay); err != nil {
		return err
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true

	if confirmed && r.notifier != nil {
		if err := r.notifier.Send(ctx, resv.GuestID, policies.TemplateBookingConfirmation, map[string]any{
			"reservation_code": resv.Code,
			"check_in":         resv.Range.CheckIn,
			"total":            resv.Total.String(),
		}); err != nil {
			r.logger.Warn("confirmation notice failed",
				"reservation_id", resv.ID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) applyRefundEvent(ctx context.Context, ev Event) error {
	read, err := r.uow.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	refund, err := read.Refunds().ByGatewayID(ctx, ev.RefundID)
	if err != nil {
		_ = read.Rollback(ctx)
		if errors.Is(err, payment.ErrRefundNotFound) {
			r.logger.Info("gateway event for unknown refund ignored",
				"event_id", ev.ID, "refund_id", ev.RefundID)
			return nil
		}
		return err
	}
	pay, err := read.Payments().ByID(ctx, refund.PaymentID)
	if err != nil {
		_ = read.Rollback(ctx)
		return err
	}
	probe, err := read.Reservations().ByID(ctx, pay.ReservationID)
	if err != nil {
		_ = read.Rollback(ctx)
		return err
	}
	unitID := probe.UnitID
	_ = read.Rollback(ctx)

	unit, err := r.uow.Begin(ctx, uow.TxOptions{SerializeUnit: unitID})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	refund, err = unit.Refunds().ByGatewayID(ctx, ev.RefundID)
	if err != nil {
		return err
	}
	pay, err = unit.Payments().ByID(ctx, refund.PaymentID)
	if err != nil {
		return err
	}
	resv, err := unit.Reservations().ByID(ctx, pay.ReservationID)
	if err != nil {
		return err
	}

	now := r.clock.Now()
	status := payment.RefundSucceeded
	if ev.Type == EventRefundUpdated && ev.Status == "failed" {
		status = payment.RefundFailed
	}
	moved, err := refund.Settle(status, now)
	if err != nil {
		// Already settled; a duplicate or stale update.
		r.logger.Debug("refund event ignored", "refund_id", refund.ID, "error", err)
		committed = true
		return unit.Commit(ctx)
	}
	// Persist the settled refund first so the total below includes it.
	if err := unit.Refunds().Save(ctx, refund); err != nil {
		return err
	}
	if moved && status == payment.RefundSucceeded {
		refunds, err := unit.Refunds().ForPayment(ctx, pay.ID)
		if err != nil {
			return err
		}
		refunded := payment.RefundedTotal(refunds, pay.Amount.Currency)
		partial := refunded.Amount < pay.Amount.Amount
		next := payment.StatusRefunded
		if partial {
			next = payment.StatusPartiallyRefunded
		}
		if _, err := pay.Apply(next, now); err != nil {
			return err
		}
		if err := resv.SettleRefund(partial, now); err != nil {
			return err
		}
	}

	if err := unit.Payments().Save(ctx, pay); err != nil {
		return err
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

type intentProbe struct {
	unitID catalog.UnitID
}

func (r *Reconciler) findByIntent(ctx context.Context, intentID string) (intentProbe, error) {
	unit, err := r.uow.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return intentProbe{}, err
	}
	defer unit.Rollback(ctx)
	pay, err := unit.Payments().ByIntentID(ctx, intentID)
	if err != nil {
		return intentProbe{}, err
	}
	resv, err := unit.Reservations().ByID(ctx, pay.ReservationID)
	if err != nil {
		return intentProbe{}, err
	}
	return intentProbe{unitID: resv.UnitID}, nil
}
