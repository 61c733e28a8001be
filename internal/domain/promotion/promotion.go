package promotion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

var (
	ErrPromotionNotFound = errors.New("promotion: code not found")
	// ErrExhausted is returned by Redeem when the usage limit was reached
	// between validation and redemption.
	ErrExhausted = errors.New("promotion: usage limit reached")
)

type DiscountKind int

const (
	Percentage DiscountKind = iota
	FixedAmount
)

func (k DiscountKind) String() string {
	switch k {
	case Percentage:
		return "percentage"
	case FixedAmount:
		return "fixed_amount"
	default:
		return "unknown"
	}
}

// Promotion is a discount code with eligibility constraints. Codes are
// stored upper-cased and matched case-insensitively. Optional constraints
// are nil when unset.
type Promotion struct {
	ID         string
	Code       string
	UnitID     *catalog.UnitID // nil means the code applies to every unit
	Kind       DiscountKind
	PercentOff float64     // Percentage kind
	AmountOff  money.Money // FixedAmount kind

	MinStayNights    *int
	MinBookingAmount *money.Money
	MaxDiscount      *money.Money // percentage kind only
	ValidFrom        *time.Time
	ValidTo          *time.Time
	UsageLimit       *int

	UsageCount int
	Active     bool
}

// NormalizeCode upper-cases and trims a user-supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Repository interface {
	ByCode(ctx context.Context, code string) (*Promotion, error)
	// Redeem increments the usage counter by exactly one, atomically with
	// respect to the usage limit. The counter is never decremented, not even
	// when the reservation is later canceled.
	Redeem(ctx context.Context, id string) error
	Save(ctx context.Context, p *Promotion) error
}
