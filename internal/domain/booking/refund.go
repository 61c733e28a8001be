package booking

import (
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// AutoRefundMinDays is the boundary at or above which a cancellation of a
// paid reservation triggers an automatic refund. Below it the tiers are
// still computed for display and admin review, but nothing fires on its
// own; that split is deliberate.
const AutoRefundMinDays = 7

// RefundBreakdown is the outcome of applying the cancellation-policy tiers
// to a payment at a given cancellation date.
type RefundBreakdown struct {
	Refundable        bool
	DaysUntilCheckIn  int
	Percent           float64
	Amount            money.Money
	CancellationFee   money.Money
	RefundableBalance money.Money
}

// RefundPercent selects the policy tier by days until check-in.
func RefundPercent(daysUntilCheckIn int) float64 {
	switch {
	case daysUntilCheckIn >= 30:
		return 100
	case daysUntilCheckIn >= 14:
		return 85
	case daysUntilCheckIn >= 7:
		return 50
	case daysUntilCheckIn >= 1:
		return 25
	default:
		return 0
	}
}

// CalculateRefund computes the refundable amount for a payment of paid with
// alreadyRefunded previously returned, when the stay starting at checkIn is
// canceled at cancellation time.
func CalculateRefund(paid, alreadyRefunded money.Money, checkIn, cancellation time.Time) RefundBreakdown {
	if !paid.IsPositive() {
		return RefundBreakdown{Refundable: false}
	}
	days := DaysUntilCheckIn(checkIn, cancellation)
	pct := RefundPercent(days)
	balance, err := paid.Sub(alreadyRefunded)
	if err != nil || !balance.IsPositive() {
		return RefundBreakdown{Refundable: false, DaysUntilCheckIn: days, Percent: pct}
	}
	amount := balance.Percent(pct)
	fee, _ := balance.Sub(amount)
	return RefundBreakdown{
		Refundable:        amount.IsPositive(),
		DaysUntilCheckIn:  days,
		Percent:           pct,
		Amount:            amount,
		CancellationFee:   fee,
		RefundableBalance: balance,
	}
}

// DaysUntilCheckIn counts whole calendar days between the cancellation date
// and check-in; a cancellation on the check-in date itself yields zero.
func DaysUntilCheckIn(checkIn, cancellation time.Time) int {
	in := daterange.Date(checkIn)
	at := daterange.Date(cancellation)
	return int(in.Sub(at).Hours() / 24)
}
