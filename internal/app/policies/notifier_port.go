package policies

import "context"

// Template names for the notices this core dispatches.
const (
	TemplateBookingConfirmation = "booking_confirmation"
	TemplateBookingExpired      = "booking_expired"
	TemplateRefundIssued        = "refund_issued"
	TemplateCancellationReview  = "cancellation_review"
)

// NotifierPort sends guest-facing notices. Fire and forget: failures are
// logged by the caller and never block a state transition.
type NotifierPort interface {
	Send(ctx context.Context, recipient, template string, model map[string]any) error
}
