package policies

import (
	"context"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// IntentStatus is the gateway's answer about an intent.
type IntentStatus string

const (
	IntentRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentSucceeded            IntentStatus = "succeeded"
	IntentFailed               IntentStatus = "failed"
	IntentCanceled             IntentStatus = "canceled"
)

// PaymentIntent identifies an authorized-but-not-captured charge at the
// gateway plus the secret the client needs to complete it.
type PaymentIntent struct {
	IntentID     string
	ClientSecret string
}

// RefundReceipt is the gateway's acknowledgement of a refund request.
type RefundReceipt struct {
	RefundID string
	Status   string
}

// GatewayPort is the payment-processor boundary. Implementations carry
// their own timeouts; refund status lookups are safe to retry, intent
// creation is not.
type GatewayPort interface {
	CreateIntent(ctx context.Context, amount money.Money, metadata map[string]string) (PaymentIntent, error)
	Confirm(ctx context.Context, intentID, paymentMethod string) (IntentStatus, error)
	Refund(ctx context.Context, intentID string, amount money.Money, reason string) (RefundReceipt, error)
}
