package reservations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/pricing"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/clock"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/gateway/sim"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/infra/storage/memory"
)

// countingGateway wraps the simulated gateway so tests can assert how many
// capture attempts actually reached it.
type countingGateway struct {
	inner    policies.GatewayPort
	mu       sync.Mutex
	confirms int
}

func (g *countingGateway) CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (policies.PaymentIntent, error) {
	return g.inner.CreateIntent(ctx, amount, metadata)
}

func (g *countingGateway) Confirm(ctx context.Context, intentID, paymentMethod string) (policies.IntentStatus, error) {
	g.mu.Lock()
	g.confirms++
	g.mu.Unlock()
	return g.inner.Confirm(ctx, intentID, paymentMethod)
}

func (g *countingGateway) Refund(ctx context.Context, intentID string, amount money.Money, reason string) (policies.RefundReceipt, error) {
	return g.inner.Refund(ctx, intentID, amount, reason)
}

func (g *countingGateway) confirmCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.confirms
}

type sentNotice struct {
	recipient string
	template  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
	fail bool
}

func (n *recordingNotifier) Send(ctx context.Context, recipient, template string, model map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp down")
	}
	n.sent = append(n.sent, sentNotice{recipient: recipient, template: template})
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.template
	}
	return out
}

type harness struct {
	factory  *memory.Factory
	gateway  *sim.Gateway
	gwCalls  *countingGateway
	notifier *recordingNotifier
	outbox   *memory.OutboxStore
	clock    *clock.Fake
	svc      *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	factory := memory.NewFactory()
	ctx := context.Background()

	require.NoError(t, factory.Units.Save(ctx, &catalog.Unit{
		ID:           "unit-1",
		Title:        "Seaside Loft",
		NightlyRate:  money.Must(10000, "USD"),
		PetFee:       money.Must(2500, "USD"),
		PetsAllowed:  true,
		MaxOccupancy: 4,
		Active:       true,
	}))

	gw := sim.New()
	counted := &countingGateway{inner: gw}
	notifier := &recordingNotifier{}
	ob := memory.NewOutboxStore()
	clk := clock.NewFake(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	validator := promotion.NewValidator(factory.Promotions)
	checker := booking.NewAvailabilityChecker(factory.Units, factory.Reservations)
	engine := pricing.NewEngine(factory.Units, factory.Rates, validator, checker)

	svc := NewService(factory, engine, counted, notifier, ob, clk, logger, Config{
		PendingTTL:        10 * time.Minute,
		AutoRefundMinDays: 7,
	})
	return &harness{
		factory:  factory,
		gateway:  gw,
		gwCalls:  counted,
		notifier: notifier,
		outbox:   ob,
		clock:    clk,
		svc:      svc,
	}
}

func (h *harness) createStay(t *testing.T, checkIn, checkOut time.Time) *CreateResult {
	t.Helper()
	res, err := h.svc.Create(context.Background(), CreateRequest{
		UnitID:   "unit-1",
		GuestID:  "guest-1",
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   2,
	})
	require.NoError(t, err)
	return res
}

// createPaid runs create+confirm, producing a Confirmed/Paid reservation.
func (h *harness) createPaid(t *testing.T, checkIn, checkOut time.Time) *booking.Reservation {
	t.Helper()
	created := h.createStay(t, checkIn, checkOut)
	resv, err := h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	require.NoError(t, err)
	require.Equal(t, booking.StatusConfirmed, resv.Status)
	return resv
}

func stay() (time.Time, time.Time) {
	return time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), time.Date(2026, 7, 13, 0, 0, 0, 0, time.UTC)
}

func TestCreateOpensIntentAndStaysPending(t *testing.T) {
	h := newHarness(t)
	in, out := stay()

	res := h.createStay(t, in, out)

	assert.Equal(t, booking.StatusPending, res.Reservation.Status)
	assert.Equal(t, booking.PayPending, res.Reservation.Payment)
	assert.Equal(t, int64(30000), res.Reservation.Total.Amount)
	assert.NotEmpty(t, res.IntentID)
	assert.NotEmpty(t, res.ClientSecret)

	pays, err := h.factory.Payments.ForReservation(context.Background(), res.Reservation.ID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, res.IntentID, pays[0].IntentID)
	assert.Equal(t, payment.StatusPending, pays[0].Status)

	assert.Greater(t, h.outbox.Pending(), 0, "the requested event should be queued")
}

func TestCreateRejectsPastCheckIn(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), CreateRequest{
		UnitID:   "unit-1",
		GuestID:  "guest-1",
		CheckIn:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Guests:   2,
	})
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestCreateRejectsOverlap(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	h.createStay(t, in, out)

	_, err := h.svc.Create(context.Background(), CreateRequest{
		UnitID:   "unit-1",
		GuestID:  "guest-2",
		CheckIn:  in.AddDate(0, 0, 1),
		CheckOut: out.AddDate(0, 0, 1),
		Guests:   1,
	})
	assert.ErrorIs(t, err, fault.ErrConflict)

	// Back to back with the first stay is fine.
	_, err = h.svc.Create(context.Background(), CreateRequest{
		UnitID:   "unit-1",
		GuestID:  "guest-2",
		CheckIn:  out,
		CheckOut: out.AddDate(0, 0, 2),
		Guests:   1,
	})
	assert.NoError(t, err)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	h := newHarness(t)
	in, out := stay()

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Create(context.Background(), CreateRequest{
				UnitID:   "unit-1",
				GuestID:  "guest-race",
				CheckIn:  in,
				CheckOut: out,
				Guests:   2,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, fault.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestCreateRedeemsPromotionOnce(t *testing.T) {
	h := newHarness(t)
	limit := 1
	require.NoError(t, h.factory.Promotions.Save(context.Background(), &promotion.Promotion{
		ID:         "promo-1",
		Code:       "SUMMER10",
		Kind:       promotion.Percentage,
		PercentOff: 10,
		UsageLimit: &limit,
		Active:     true,
	}))
	in, out := stay()

	res, err := h.svc.Create(context.Background(), CreateRequest{
		UnitID:    "unit-1",
		GuestID:   "guest-1",
		CheckIn:   in,
		CheckOut:  out,
		Guests:    2,
		PromoCode: "summer10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(27000), res.Reservation.Total.Amount)

	promo, err := h.factory.Promotions.ByCode(context.Background(), "SUMMER10")
	require.NoError(t, err)
	assert.Equal(t, 1, promo.UsageCount)

	// The limit is spent; a later booking cannot use the code even though
	// the dates are different.
	_, err = h.svc.Create(context.Background(), CreateRequest{
		UnitID:    "unit-1",
		GuestID:   "guest-2",
		CheckIn:   out.AddDate(0, 0, 3),
		CheckOut:  out.AddDate(0, 0, 6),
		Guests:    2,
		PromoCode: "SUMMER10",
	})
	assert.ErrorIs(t, err, fault.ErrConflict)
}

func TestConfirmPaymentSucceeded(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)

	resv, err := h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, resv.Status)
	assert.Equal(t, booking.PayPaid, resv.Payment)

	pay, err := h.factory.Payments.ByIntentID(context.Background(), created.IntentID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, pay.Status)
	assert.NotNil(t, pay.CompletedAt)

	assert.Contains(t, h.notifier.templates(), "booking_confirmation")
}

func TestConfirmPaymentDeclined(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)

	resv, err := h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_declined")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, resv.Status)
	assert.Equal(t, booking.PayFailed, resv.Payment)
	assert.NotContains(t, h.notifier.templates(), "booking_confirmation")

	// A retried charge can still succeed.
	resv, err = h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, resv.Status)
	assert.Equal(t, booking.PayPaid, resv.Payment)
}

func TestConfirmPaymentAfterExpiryNeverCharges(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)
	h.clock.Advance(11 * time.Minute)
	_, err := h.svc.Cancel(context.Background(), created.Reservation.ID, "guest", "changed plans")
	require.NoError(t, err)

	before := h.gwCalls.confirmCount()
	_, err = h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	assert.ErrorIs(t, err, fault.ErrConsistency)

	// The guard fires before the gateway is asked to capture, so no money
	// moves for the expired stay.
	assert.Equal(t, before, h.gwCalls.confirmCount())
	pays, err := h.factory.Payments.ForReservation(context.Background(), created.Reservation.ID)
	require.NoError(t, err)
	require.Len(t, pays, 1)
	assert.Equal(t, payment.StatusPending, pays[0].Status)

	resv, err := h.svc.Get(context.Background(), created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCanceled, resv.Status)
	assert.Equal(t, booking.PayExpired, resv.Payment)
}

func TestCancelUnpaidWithinWindow(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)

	_, err := h.svc.Cancel(context.Background(), created.Reservation.ID, "guest", "changed plans")
	assert.ErrorIs(t, err, fault.ErrConflict)

	resv, err := h.svc.Get(context.Background(), created.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, resv.Status)
}

func TestCancelUnpaidPastWindowExpires(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)
	h.clock.Advance(11 * time.Minute)

	outcome, err := h.svc.Cancel(context.Background(), created.Reservation.ID, "guest", "changed plans")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCanceled, outcome.Reservation.Status)
	assert.Equal(t, booking.PayExpired, outcome.Reservation.Payment)
	assert.Nil(t, outcome.Refund)
	assert.Contains(t, h.notifier.templates(), "booking_expired")

	// The dates are free again.
	_, err = h.svc.Create(context.Background(), CreateRequest{
		UnitID:   "unit-1",
		GuestID:  "guest-2",
		CheckIn:  in,
		CheckOut: out,
		Guests:   2,
	})
	assert.NoError(t, err)
}

func TestCancelPaidAutoRefundHalf(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)

	// Ten days before check-in lands in the 50% tier.
	h.clock.Set(time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC))

	outcome, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "change of plans")
	require.NoError(t, err)
	require.NotNil(t, outcome.Refund)
	assert.False(t, outcome.ManualReview)
	assert.Equal(t, float64(50), outcome.Refund.Percent)
	assert.Equal(t, int64(15000), outcome.Refund.Amount.Amount)
	assert.Equal(t, int64(15000), outcome.Refund.CancellationFee.Amount)

	assert.Equal(t, booking.StatusCanceled, outcome.Reservation.Status)
	assert.Equal(t, booking.PayRefunded, outcome.Reservation.Payment)

	pay, err := h.factory.Payments.SucceededForReservation(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPartiallyRefunded, pay.Status)

	refunds, err := h.factory.Refunds.ForPayment(context.Background(), pay.ID)
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, payment.RefundSucceeded, refunds[0].Status)
	assert.NotEmpty(t, refunds[0].GatewayRefundID)

	assert.Contains(t, h.notifier.templates(), "refund_issued")
}

func TestCancelPaidFullRefundFarOut(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out) // clock is June 1st, 39 days out

	outcome, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "")
	require.NoError(t, err)
	require.NotNil(t, outcome.Refund)
	assert.Equal(t, float64(100), outcome.Refund.Percent)
	assert.Equal(t, int64(30000), outcome.Refund.Amount.Amount)

	pay, err := h.factory.Payments.SucceededForReservation(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, pay.Status)
}

func TestCancelPaidCloseToCheckInGoesToReview(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)

	// Three days out: refundable at 25%, but below the automatic boundary.
	h.clock.Set(time.Date(2026, 7, 7, 9, 0, 0, 0, time.UTC))

	outcome, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "emergency")
	require.NoError(t, err)
	assert.True(t, outcome.ManualReview)
	assert.Equal(t, float64(25), outcome.Refund.Percent)
	assert.Equal(t, booking.StatusCanceled, outcome.Reservation.Status)
	assert.Equal(t, booking.PayCancellationPending, outcome.Reservation.Payment)

	// No money moved yet.
	pay, err := h.factory.Payments.SucceededForReservation(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, pay.Status)
	assert.Contains(t, h.notifier.templates(), "cancellation_review")
}

func TestCancelGatewayFailureParksForReview(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)
	h.gateway.FailRefunds = true

	_, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "")
	assert.ErrorIs(t, err, fault.ErrGateway)

	reloaded, err := h.svc.Get(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCanceled, reloaded.Status)
	assert.Equal(t, booking.PayCancellationPending, reloaded.Payment)
}

func TestCancelAlreadyCanceled(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)

	_, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "")
	require.NoError(t, err)
	_, err = h.svc.Cancel(context.Background(), resv.ID, "guest", "")
	assert.ErrorIs(t, err, fault.ErrConsistency)
}

func TestPreviewRefund(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	created := h.createStay(t, in, out)

	// Unpaid: nothing to refund, but not an error.
	preview, err := h.svc.PreviewRefund(context.Background(), created.Reservation.ID)
	require.NoError(t, err)
	assert.False(t, preview.Refundable)

	_, err = h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	require.NoError(t, err)
	h.clock.Set(time.Date(2026, 6, 30, 9, 0, 0, 0, time.UTC))

	preview, err = h.svc.PreviewRefund(context.Background(), created.Reservation.ID)
	require.NoError(t, err)
	assert.True(t, preview.Refundable)
	assert.Equal(t, float64(50), preview.Percent)
	assert.Equal(t, int64(15000), preview.Amount.Amount)
}

func TestCompleteRefundSettlesReview(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)
	h.clock.Set(time.Date(2026, 7, 7, 9, 0, 0, 0, time.UTC))

	outcome, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "emergency")
	require.NoError(t, err)
	require.True(t, outcome.ManualReview)

	refund, err := h.svc.CompleteRefund(context.Background(), resv.ID, money.Must(7500, "USD"), "goodwill", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, payment.RefundSucceeded, refund.Status)
	assert.Equal(t, "admin-1", refund.IssuedBy)
	assert.NotEmpty(t, refund.GatewayRefundID)

	reloaded, err := h.svc.Get(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.PayPartiallyRefunded, reloaded.Payment)

	pay, err := h.factory.Payments.SucceededForReservation(context.Background(), resv.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPartiallyRefunded, pay.Status)
}

func TestCompleteRefundRequiresAdmin(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)

	_, err := h.svc.CompleteRefund(context.Background(), resv.ID, money.Must(5000, "USD"), "goodwill", "")
	assert.ErrorIs(t, err, fault.ErrValidation)
}

func TestCompleteRefundRejectsOverRefund(t *testing.T) {
	h := newHarness(t)
	in, out := stay()
	resv := h.createPaid(t, in, out)
	h.clock.Set(time.Date(2026, 7, 7, 9, 0, 0, 0, time.UTC))
	_, err := h.svc.Cancel(context.Background(), resv.ID, "guest", "emergency")
	require.NoError(t, err)

	_, err = h.svc.CompleteRefund(context.Background(), resv.ID, money.Must(20000, "USD"), "goodwill", "admin-1")
	require.NoError(t, err)

	// The remaining balance is 10000; anything above must be rejected.
	_, err = h.svc.CompleteRefund(context.Background(), resv.ID, money.Must(15000, "USD"), "more goodwill", "admin-1")
	assert.ErrorIs(t, err, fault.ErrConflict)
}

func TestNotifierFailureDoesNotBlockConfirmation(t *testing.T) {
	h := newHarness(t)
	h.notifier.fail = true
	in, out := stay()
	created := h.createStay(t, in, out)

	resv, err := h.svc.ConfirmPayment(context.Background(), created.Reservation.ID, "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, resv.Status)
}
