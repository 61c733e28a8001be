package payment

import (
	"context"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

type RefundStatus int

const (
	RefundPending RefundStatus = iota
	RefundSucceeded
	RefundFailed
)

func (s RefundStatus) String() string {
	switch s {
	case RefundPending:
		return "pending"
	case RefundSucceeded:
		return "succeeded"
	case RefundFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Refund is one partial or full return of a payment. A payment may carry
// several refunds; together they never exceed the payment amount.
type Refund struct {
	ID              string
	PaymentID       string
	GatewayRefundID string
	Amount          money.Money
	Status          RefundStatus
	Reason          string
	IssuedBy        string // acting administrator, passed explicitly
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

// Settle moves a pending refund to its terminal status. Re-settling with
// the same status is a no-op so duplicate webhooks stay harmless.
func (r *Refund) Settle(status RefundStatus, now time.Time) (bool, error) {
	if status == r.Status {
		return false, nil
	}
	if r.Status != RefundPending {
		return false, fault.Consistencyf("refund %s: already settled as %s", r.ID, r.Status)
	}
	r.Status = status
	if status == RefundSucceeded {
		t := now.UTC()
		r.CompletedAt = &t
	}
	return true, nil
}

// RefundedTotal sums the succeeded refunds.
func RefundedTotal(refunds []*Refund, currency string) money.Money {
	total := money.Zero(currency)
	for _, r := range refunds {
		if r.Status != RefundSucceeded {
			continue
		}
		total, _ = total.Add(r.Amount)
	}
	return total
}

// NewRefund validates that amount still fits under the payment's remaining
// refundable balance and builds the pending refund record.
func NewRefund(id string, p *Payment, existing []*Refund, amount money.Money, reason, issuedBy string, now time.Time) (*Refund, error) {
	if !amount.IsPositive() {
		return nil, fault.Validationf("refund amount must be positive")
	}
	refunded := RefundedTotal(existing, p.Amount.Currency)
	remaining, err := p.Amount.Sub(refunded)
	if err != nil {
		return nil, err
	}
	if amount.Amount > remaining.Amount {
		return nil, fault.Conflictf("refund of %s exceeds refundable balance %s", amount, remaining)
	}
	return &Refund{
		ID:        id,
		PaymentID: p.ID,
		Amount:    amount,
		Status:    RefundPending,
		Reason:    reason,
		IssuedBy:  issuedBy,
		CreatedAt: now.UTC(),
	}, nil
}

type RefundRepository interface {
	ByGatewayID(ctx context.Context, gatewayRefundID string) (*Refund, error)
	ForPayment(ctx context.Context, paymentID string) ([]*Refund, error)
	Save(ctx context.Context, r *Refund) error
}
