package promotion

import (
	"context"
	"errors"
	"fmt"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// Result describes the outcome of validating a code against a candidate
// booking. When Valid is false, Message carries a human-readable reason.
type Result struct {
	Valid     bool
	Promotion *Promotion
	Discount  money.Money
	Message   string
}

// Validator checks codes against candidate bookings and computes discounts.
// The validity window is evaluated against the stay dates, not the wall
// clock: a code must cover the whole [checkIn, checkOut] span.
type Validator struct {
	promos Repository
}

func NewValidator(promos Repository) *Validator {
	return &Validator{promos: promos}
}

// Validate checks every constraint of the code at once and computes the
// resulting discount over baseAmount. The discount never exceeds baseAmount.
func (v *Validator) Validate(ctx context.Context, code string, unitID catalog.UnitID, dr daterange.DateRange, baseAmount money.Money) (Result, error) {
	p, err := v.promos.ByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return rejected("promotion code not found"), nil
		}
		return Result{}, err
	}
	if !p.Active {
		return rejected("promotion is not active"), nil
	}
	if p.ValidFrom != nil && dr.CheckIn.Before(daterange.Date(*p.ValidFrom)) {
		return rejected("promotion is not valid yet for these dates"), nil
	}
	if p.ValidTo != nil && dr.CheckOut.After(daterange.Date(*p.ValidTo)) {
		return rejected("promotion has expired for these dates"), nil
	}
	if p.UnitID != nil && *p.UnitID != unitID {
		return rejected("promotion does not apply to this apartment"), nil
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return rejected("promotion usage limit reached"), nil
	}
	if p.MinStayNights != nil && dr.Nights() < *p.MinStayNights {
		return rejected(fmt.Sprintf("promotion requires a minimum stay of %d nights", *p.MinStayNights)), nil
	}
	if p.MinBookingAmount != nil {
		shortfall, err := p.MinBookingAmount.Sub(baseAmount)
		if err != nil {
			return Result{}, err
		}
		if shortfall.IsPositive() {
			return rejected("booking amount is below the promotion minimum"), nil
		}
	}

	discount, err := Discount(p, baseAmount)
	if err != nil {
		return Result{}, err
	}
	return Result{Valid: true, Promotion: p, Discount: discount}, nil
}

// Discount computes the discount a promotion grants over baseAmount:
// percentage kinds take PercentOff of the base capped at MaxDiscount,
// fixed kinds grant AmountOff capped at the base itself.
func Discount(p *Promotion, baseAmount money.Money) (money.Money, error) {
	switch p.Kind {
	case Percentage:
		d := baseAmount.Percent(p.PercentOff)
		if p.MaxDiscount != nil {
			capped, err := d.Min(*p.MaxDiscount)
			if err != nil {
				return money.Money{}, err
			}
			d = capped
		}
		return d, nil
	case FixedAmount:
		return p.AmountOff.Min(baseAmount)
	default:
		return money.Money{}, fmt.Errorf("promotion: unknown discount kind %d", p.Kind)
	}
}

func rejected(msg string) Result {
	return Result{Valid: false, Message: msg}
}
