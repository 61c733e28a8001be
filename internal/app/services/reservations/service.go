package reservations

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/outbox"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/pricing"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/clock"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// Config carries the tunables of the booking flow.
type Config struct {
	// PendingTTL is how long an unpaid reservation may sit before a user
	// cancellation (or the sweeper) expires it.
	PendingTTL time.Duration
	// AutoRefundMinDays is the days-to-check-in boundary at or above which
	// a paid cancellation is refunded automatically.
	AutoRefundMinDays int
}

// Service drives the reservation lifecycle: quoting, creation against the
// availability invariant, cancellation with the refund policy, and
// admin-settled refunds.
type Service struct {
	uow      uow.Factory
	pricing  *pricing.Engine
	gateway  policies.GatewayPort
	notifier policies.NotifierPort
	outbox   outbox.Outbox
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
}

func NewService(factory uow.Factory, engine *pricing.Engine, gateway policies.GatewayPort, notifier policies.NotifierPort, ob outbox.Outbox, clk clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 10 * time.Minute
	}
	if cfg.AutoRefundMinDays <= 0 {
		cfg.AutoRefundMinDays = booking.AutoRefundMinDays
	}
	return &Service{
		uow:      factory,
		pricing:  engine,
		gateway:  gateway,
		notifier: notifier,
		outbox:   ob,
		clock:    clk,
		logger:   logger,
		cfg:      cfg,
	}
}

// QuoteRequest describes a candidate booking to price.
type QuoteRequest struct {
	UnitID    catalog.UnitID
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Pets      int
	PromoCode string
}

// Quote prices a candidate booking without reserving anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (pricing.BookingQuote, error) {
	dr, err := s.validatedRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return pricing.BookingQuote{}, err
	}
	return s.pricing.Quote(ctx, pricing.QuoteInput{
		UnitID:    req.UnitID,
		Range:     dr,
		Guests:    req.Guests,
		Pets:      req.Pets,
		PromoCode: req.PromoCode,
	})
}

// CreateRequest describes a booking to reserve.
type CreateRequest struct {
	UnitID    catalog.UnitID
	GuestID   string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Pets      int
	PromoCode string
}

// CreateResult is the accepted reservation plus what the client needs to
// complete payment.
type CreateResult struct {
	Reservation  *booking.Reservation
	IntentID     string
	ClientSecret string
}

// Create reserves the dates and opens a payment intent. The availability
// check and the reservation insert run inside one unit of work serialized
// per unit, so two concurrent requests for overlapping dates cannot both
// pass the check: the loser gets a conflict.
//
// A gateway failure after commit leaves the reservation Pending/Pending,
// a well-defined state the sweeper will expire if the guest never pays,
// and surfaces as a gateway error.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	dr, err := s.validatedRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	unit, err := s.uow.Begin(ctx, uow.TxOptions{SerializeUnit: req.UnitID})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	quote, err := s.pricing.Quote(ctx, pricing.QuoteInput{
		UnitID:    req.UnitID,
		Range:     dr,
		Guests:    req.Guests,
		Pets:      req.Pets,
		PromoCode: req.PromoCode,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	params := booking.CreateParams{
		ID:        booking.ReservationID(uuid.NewString()),
		UnitID:    req.UnitID,
		GuestID:   req.GuestID,
		Range:     dr,
		Guests:    req.Guests,
		Pets:      req.Pets,
		BasePrice: quote.BasePrice,
		PetFee:    quote.PetFee,
		Discount:  quote.Discount,
		Total:     quote.Total,
		CreatedAt: now,
	}
	if quote.Promotion != nil {
		params.PromoID = quote.Promotion.ID
		params.PromoCode = quote.Promotion.Code
	}
	resv, err := booking.NewReservation(params)
	if err != nil {
		return nil, fault.Wrap(fault.ErrValidation, err)
	}

	if quote.Promotion != nil {
		if err := unit.Promotions().Redeem(ctx, quote.Promotion.ID); err != nil {
			return nil, fault.Wrap(fault.ErrConflict, err)
		}
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return nil, err
	}
	if err := s.drainEvents(ctx, resv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	intent, err := s.gateway.CreateIntent(ctx, resv.Total, map[string]string{
		"reservation_id":   string(resv.ID),
		"reservation_code": resv.Code,
		"unit_id":          string(resv.UnitID),
	})
	if err != nil {
		s.logger.Error("payment intent creation failed",
			"reservation_id", resv.ID, "error", err)
		return nil, fault.Wrap(fault.ErrGateway, err)
	}

	pay := payment.New(uuid.NewString(), resv.ID, intent.IntentID, resv.Total, now)
	payUnit, err := s.uow.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	if err := payUnit.Payments().Save(ctx, pay); err != nil {
		_ = payUnit.Rollback(ctx)
		return nil, err
	}
	if err := payUnit.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("reservation created",
		"reservation_id", resv.ID, "code", resv.Code, "unit_id", resv.UnitID,
		"range", resv.Range.String(), "total", resv.Total.String())

	return &CreateResult{
		Reservation:  resv,
		IntentID:     intent.IntentID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment is the synchronous, client-confirmed path: the guest
// submitted a payment method and we ask the gateway for the verdict. The
// whole sequence runs inside the unit-serialized boundary, so the sweeper
// or a cancellation cannot land between the status check and the capture.
// The asynchronous webhook for the same intent stays harmless because the
// transitions are idempotent.
func (s *Service) ConfirmPayment(ctx context.Context, id booking.ReservationID, paymentMethod string) (*booking.Reservation, error) {
	probe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	unit, err := s.uow.Begin(ctx, uow.TxOptions{SerializeUnit: probe.UnitID})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()
	resv, err := unit.Reservations().ByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrNotFound, err)
	}
	// Checked before the gateway is asked to capture: a charge taken for
	// an expired or canceled stay has no state to land on.
	if resv.Status != booking.StatusPending {
		return nil, fault.Consistencyf("reservation %s is %s; payment can no longer be confirmed", resv.ID, resv.Status)
	}
	pays, err := unit.Payments().ForReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(pays) == 0 {
		return nil, fault.NotFoundf("reservation %s has no payment intent", id)
	}
	pay := pays[0]

	status, err := s.gateway.Confirm(ctx, pay.IntentID, paymentMethod)
	if err != nil {
		return nil, fault.Wrap(fault.ErrGateway, err)
	}

	now := s.clock.Now()
	switch status {
	case policies.IntentSucceeded:
		moved, err := pay.Apply(payment.StatusSucceeded, now)
		if err != nil {
			return nil, err
		}
		if moved {
			if err := resv.ConfirmPayment(now); err != nil {
				return nil, err
			}
		}
	case policies.IntentFailed:
		if _, err := pay.Apply(payment.StatusFailed, now); err != nil {
			return nil, err
		}
		if resv.Payment == booking.PayPending {
			if err := resv.MarkPaymentFailed(now); err != nil {
				return nil, err
			}
		}
	case policies.IntentCanceled:
		if _, err := pay.Apply(payment.StatusCanceled, now); err != nil {
			return nil, err
		}
		if resv.Payment == booking.PayPending {
			if err := resv.MarkPaymentCanceled(now); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fault.Gatewayf("unexpected intent status %q", status)
	}

	if err := unit.Payments().Save(ctx, pay); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return nil, err
	}
	if err := s.drainEvents(ctx, resv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	if resv.Status == booking.StatusConfirmed {
		s.notify(ctx, resv.GuestID, policies.TemplateBookingConfirmation, map[string]any{
			"reservation_code": resv.Code,
			"check_in":         resv.Range.CheckIn,
			"total":            resv.Total.String(),
		})
	}
	return resv, nil
}

// CancelOutcome reports what a cancellation did.
type CancelOutcome struct {
	Reservation  *booking.Reservation
	Refund       *booking.RefundBreakdown
	ManualReview bool
}

// Cancel handles a guest-initiated cancellation. Unpaid reservations older
// than the pending TTL expire on the spot; paid reservations at or beyond
// the auto-refund boundary get their tiered refund pushed to the gateway;
// paid reservations closer to check-in go to manual review.
func (s *Service) Cancel(ctx context.Context, id booking.ReservationID, actor, reason string) (*CancelOutcome, error) {
	probe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	unit, err := s.uow.Begin(ctx, uow.TxOptions{SerializeUnit: probe.UnitID})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()
	resv, err := unit.Reservations().ByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrNotFound, err)
	}
	if resv.Status == booking.StatusCanceled || resv.Status == booking.StatusCompleted {
		return nil, fault.Consistencyf("reservation %s is already %s", resv.ID, resv.Status)
	}

	now := s.clock.Now()
	if resv.Payment != booking.PayPaid {
		// Unpaid. The guest must wait out the pending window; the payment
		// may still be completing.
		if now.Sub(resv.CreatedAt) <= s.cfg.PendingTTL {
			return nil, fault.Conflictf("reservation %s is still within the payment window; retry after %s", resv.ID, s.cfg.PendingTTL)
		}
		if err := resv.Expire(now); err != nil {
			return nil, err
		}
		if err := unit.Reservations().Save(ctx, resv); err != nil {
			return nil, err
		}
		if err := s.drainEvents(ctx, resv); err != nil {
			return nil, err
		}
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		s.notify(ctx, resv.GuestID, policies.TemplateBookingExpired, map[string]any{
			"reservation_code": resv.Code,
		})
		return &CancelOutcome{Reservation: resv}, nil
	}

	pay, err := unit.Payments().SucceededForReservation(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrConsistency, err)
	}
	refunds, err := unit.Refunds().ForPayment(ctx, pay.ID)
	if err != nil {
		return nil, err
	}
	refunded := payment.RefundedTotal(refunds, pay.Amount.Currency)
	breakdown := booking.CalculateRefund(pay.Amount, refunded, resv.Range.CheckIn, now)

	if breakdown.DaysUntilCheckIn < s.cfg.AutoRefundMinDays || !breakdown.Refundable {
		// Too close to check-in for the automatic path; an administrator
		// reviews and settles the refund manually.
		if err := resv.CancelPendingReview(now); err != nil {
			return nil, err
		}
		if err := unit.Reservations().Save(ctx, resv); err != nil {
			return nil, err
		}
		if err := s.drainEvents(ctx, resv); err != nil {
			return nil, err
		}
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
		s.notify(ctx, resv.GuestID, policies.TemplateCancellationReview, map[string]any{
			"reservation_code": resv.Code,
			"refund_percent":   breakdown.Percent,
		})
		return &CancelOutcome{Reservation: resv, Refund: &breakdown, ManualReview: true}, nil
	}

	receipt, err := s.gateway.Refund(ctx, pay.IntentID, breakdown.Amount, reason)
	if err != nil {
		// The gateway is unreachable or rejected the call. Park the
		// reservation in review rather than guessing about the money.
		s.logger.Error("automatic refund failed, parking for review",
			"reservation_id", resv.ID, "error", err)
		if reviewErr := resv.CancelPendingReview(now); reviewErr != nil {
			return nil, reviewErr
		}
		if saveErr := unit.Reservations().Save(ctx, resv); saveErr != nil {
			return nil, saveErr
		}
		if drainErr := s.drainEvents(ctx, resv); drainErr != nil {
			return nil, drainErr
		}
		if commitErr := unit.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}
		committed = true
		return nil, fault.Wrap(fault.ErrGateway, err)
	}

	refund, err := payment.NewRefund(uuid.NewString(), pay, refunds, breakdown.Amount, reason, actor, now)
	if err != nil {
		return nil, err
	}
	refund.GatewayRefundID = receipt.RefundID
	if _, err := refund.Settle(payment.RefundSucceeded, now); err != nil {
		return nil, err
	}
	partial := breakdown.Amount.Amount < pay.Amount.Amount
	next := payment.StatusRefunded
	if partial {
		next = payment.StatusPartiallyRefunded
	}
	if _, err := pay.Apply(next, now); err != nil {
		return nil, err
	}
	if err := resv.CancelRefunded(breakdown.Amount, now); err != nil {
		return nil, err
	}

	if err := unit.Refunds().Save(ctx, refund); err != nil {
		return nil, err
	}
	if err := unit.Payments().Save(ctx, pay); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return nil, err
	}
	if err := s.drainEvents(ctx, resv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	s.logger.Info("reservation canceled with automatic refund",
		"reservation_id", resv.ID, "refund", breakdown.Amount.String(),
		"fee", breakdown.CancellationFee.String(), "actor", actor)
	s.notify(ctx, resv.GuestID, policies.TemplateRefundIssued, map[string]any{
		"reservation_code": resv.Code,
		"refund":           breakdown.Amount.String(),
	})
	return &CancelOutcome{Reservation: resv, Refund: &breakdown}, nil
}

// PreviewRefund computes the tiered refund a cancellation right now would
// yield, for display and admin review. All tiers are reported here, even
// the ones the automatic path never executes.
func (s *Service) PreviewRefund(ctx context.Context, id booking.ReservationID) (booking.RefundBreakdown, error) {
	resv, err := s.load(ctx, id)
	if err != nil {
		return booking.RefundBreakdown{}, err
	}
	unit, err := s.uow.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return booking.RefundBreakdown{}, err
	}
	defer unit.Rollback(ctx)

	pay, err := unit.Payments().SucceededForReservation(ctx, id)
	if err != nil {
		return booking.RefundBreakdown{Refundable: false}, nil
	}
	refunds, err := unit.Refunds().ForPayment(ctx, pay.ID)
	if err != nil {
		return booking.RefundBreakdown{}, err
	}
	refunded := payment.RefundedTotal(refunds, pay.Amount.Currency)
	return booking.CalculateRefund(pay.Amount, refunded, resv.Range.CheckIn, s.clock.Now()), nil
}

// CompleteRefund is the admin path settling a refund for a reservation in
// cancellation review (or issuing an extra partial refund). The acting
// administrator is passed explicitly.
func (s *Service) CompleteRefund(ctx context.Context, id booking.ReservationID, amount money.Money, reason, adminID string) (*payment.Refund, error) {
	if adminID == "" {
		return nil, fault.Validationf("acting administrator is required")
	}
	probe, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	unit, err := s.uow.Begin(ctx, uow.TxOptions{SerializeUnit: probe.UnitID})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()
	resv, err := unit.Reservations().ByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrNotFound, err)
	}
	pay, err := unit.Payments().SucceededForReservation(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrNotFound, err)
	}
	refunds, err := unit.Refunds().ForPayment(ctx, pay.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	refund, err := payment.NewRefund(uuid.NewString(), pay, refunds, amount, reason, adminID, now)
	if err != nil {
		return nil, err
	}
	receipt, err := s.gateway.Refund(ctx, pay.IntentID, amount, reason)
	if err != nil {
		return nil, fault.Wrap(fault.ErrGateway, err)
	}
	refund.GatewayRefundID = receipt.RefundID
	if _, err := refund.Settle(payment.RefundSucceeded, now); err != nil {
		return nil, err
	}

	refunded := payment.RefundedTotal(refunds, pay.Amount.Currency)
	totalAfter := refunded.Amount + amount.Amount
	partial := totalAfter < pay.Amount.Amount
	next := payment.StatusRefunded
	if partial {
		next = payment.StatusPartiallyRefunded
	}
	if _, err := pay.Apply(next, now); err != nil {
		return nil, err
	}
	if err := resv.SettleRefund(partial, now); err != nil {
		return nil, err
	}

	if err := unit.Refunds().Save(ctx, refund); err != nil {
		return nil, err
	}
	if err := unit.Payments().Save(ctx, pay); err != nil {
		return nil, err
	}
	if err := unit.Reservations().Save(ctx, resv); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	s.logger.Info("refund settled",
		"reservation_id", resv.ID, "amount", amount.String(), "admin", adminID)
	s.notify(ctx, resv.GuestID, policies.TemplateRefundIssued, map[string]any{
		"reservation_code": resv.Code,
		"refund":           amount.String(),
	})
	return refund, nil
}

// Get returns a reservation by id.
func (s *Service) Get(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	return s.load(ctx, id)
}

// DailyPrices exposes the nightly price schedule for a unit and range.
func (s *Service) DailyPrices(ctx context.Context, unitID catalog.UnitID, checkIn, checkOut time.Time) ([]pricing.NightPrice, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return nil, fault.Wrap(fault.ErrValidation, err)
	}
	return s.pricing.DailyPrices(ctx, unitID, dr)
}

func (s *Service) load(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	unit, err := s.uow.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	resv, err := unit.Reservations().ByID(ctx, id)
	if err != nil {
		return nil, fault.Wrap(fault.ErrNotFound, err)
	}
	return resv, nil
}

func (s *Service) validatedRange(checkIn, checkOut time.Time) (daterange.DateRange, error) {
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return daterange.DateRange{}, fault.Wrap(fault.ErrValidation, err)
	}
	today := daterange.Date(s.clock.Now())
	if dr.CheckIn.Before(today) {
		return daterange.DateRange{}, fault.Validationf("check-in date is in the past")
	}
	return dr, nil
}

func (s *Service) drainEvents(ctx context.Context, resv *booking.Reservation) error {
	evs := resv.PendingEvents()
	resv.ClearEvents()
	return outbox.RecordDomainEvents(ctx, s.outbox, nil, evs)
}

// notify dispatches a notice, logging failures instead of propagating them.
func (s *Service) notify(ctx context.Context, recipient, template string, model map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, recipient, template, model); err != nil {
		s.logger.Warn("notice dispatch failed",
			"recipient", recipient, "template", template, "error", err)
	}
}
