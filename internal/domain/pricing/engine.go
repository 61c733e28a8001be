package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

// PriceSource tells where a nightly price came from.
type PriceSource int

const (
	SourceBase PriceSource = iota
	SourceSeasonal
)

func (s PriceSource) String() string {
	if s == SourceSeasonal {
		return "seasonal"
	}
	return "base"
}

// NightPrice is the price of one billed night.
type NightPrice struct {
	Date   time.Time
	Price  money.Money
	Source PriceSource
	RateID catalog.RateID // set when Source is seasonal
}

// QuoteInput is a candidate booking to price.
type QuoteInput struct {
	UnitID    catalog.UnitID
	Range     daterange.DateRange
	Guests    int
	Pets      int
	PromoCode string // optional
}

// BookingQuote is the full, auditable price of a candidate booking.
// Total = BasePrice + PetFee - Discount, never negative.
type BookingQuote struct {
	Nights    []NightPrice
	BasePrice money.Money
	PetFee    money.Money
	Discount  money.Money
	Total     money.Money
	Promotion *promotion.Promotion
	PromoCode string
}

// Availability is the slice of the availability checker the engine needs.
type Availability interface {
	IsAvailable(ctx context.Context, unitID catalog.UnitID, dr daterange.DateRange, excludeID booking.ReservationID) (bool, error)
}

// Engine computes nightly and aggregate booking prices. Both methods are
// pure functions of the stored units, seasonal rates and promotions:
// identical inputs yield identical quotes.
type Engine struct {
	units        catalog.UnitRepository
	rates        catalog.RateRepository
	promos       *promotion.Validator
	availability Availability
}

func NewEngine(units catalog.UnitRepository, rates catalog.RateRepository, promos *promotion.Validator, availability Availability) *Engine {
	return &Engine{units: units, rates: rates, promos: promos, availability: availability}
}

// DailyPrices produces one entry per night in the range: the covering
// seasonal rate with the highest priority, or the unit's base rate.
func (e *Engine) DailyPrices(ctx context.Context, unitID catalog.UnitID, dr daterange.DateRange) ([]NightPrice, error) {
	unit, err := e.units.ByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnitNotFound) {
			return nil, fault.Wrap(fault.ErrNotFound, err)
		}
		return nil, err
	}
	if !unit.Active {
		return nil, fault.Validationf("apartment %s is not available for booking", unitID)
	}
	rates, err := e.rates.ForUnit(ctx, unitID)
	if err != nil {
		return nil, err
	}
	nights := make([]NightPrice, 0, dr.Nights())
	for _, date := range dr.Dates() {
		np := NightPrice{Date: date, Price: unit.NightlyRate, Source: SourceBase}
		if rate, ok := catalog.RateFor(rates, date); ok {
			np.Price = rate.Nightly
			np.Source = SourceSeasonal
			np.RateID = rate.ID
		}
		nights = append(nights, np)
	}
	return nights, nil
}

// Quote prices a candidate booking end to end: nightly sum, pet fee,
// promotion discount. Validation failures come back as fault.Validation;
// an occupied range as fault.Conflict; an ineligible promotion code as
// fault.Conflict with the validator's message.
func (e *Engine) Quote(ctx context.Context, in QuoteInput) (BookingQuote, error) {
	var zero BookingQuote

	unit, err := e.units.ByID(ctx, in.UnitID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnitNotFound) {
			return zero, fault.Wrap(fault.ErrNotFound, err)
		}
		return zero, err
	}
	if !unit.Active {
		return zero, fault.Validationf("apartment %s is not available for booking", in.UnitID)
	}
	if in.Guests <= 0 {
		return zero, fault.Validationf("guest count must be positive")
	}
	if in.Guests > unit.MaxOccupancy {
		return zero, fault.Validationf("guest count %d exceeds the maximum occupancy of %d", in.Guests, unit.MaxOccupancy)
	}
	if in.Pets < 0 {
		return zero, fault.Validationf("pet count cannot be negative")
	}
	if in.Pets > 0 && !unit.PetsAllowed {
		return zero, fault.Validationf("apartment %s does not allow pets", in.UnitID)
	}

	available, err := e.availability.IsAvailable(ctx, in.UnitID, in.Range, "")
	if err != nil {
		return zero, err
	}
	if !available {
		return zero, fault.Conflictf("apartment %s is not available for %s", in.UnitID, in.Range)
	}

	nights, err := e.DailyPrices(ctx, in.UnitID, in.Range)
	if err != nil {
		return zero, err
	}
	base := money.Zero(unit.NightlyRate.Currency)
	for _, n := range nights {
		base, err = base.Add(n.Price)
		if err != nil {
			return zero, err
		}
	}

	petFee := money.Zero(base.Currency)
	if in.Pets > 0 && unit.PetsAllowed {
		petFee = unit.PetFee.Multiply(int64(in.Pets))
	}
	beforeDiscount, err := base.Add(petFee)
	if err != nil {
		return zero, err
	}

	quote := BookingQuote{
		Nights:    nights,
		BasePrice: base,
		PetFee:    petFee,
		Discount:  money.Zero(base.Currency),
		Total:     beforeDiscount,
	}

	if in.PromoCode != "" {
		result, err := e.promos.Validate(ctx, in.PromoCode, in.UnitID, in.Range, beforeDiscount)
		if err != nil {
			return zero, err
		}
		if !result.Valid {
			return zero, fault.Conflictf("promotion %s: %s", promotion.NormalizeCode(in.PromoCode), result.Message)
		}
		quote.Promotion = result.Promotion
		quote.PromoCode = result.Promotion.Code
		quote.Discount = result.Discount
		quote.Total, err = beforeDiscount.Sub(result.Discount)
		if err != nil {
			return zero, err
		}
		if quote.Total.Amount < 0 {
			quote.Total = money.Zero(base.Currency)
		}
	}
	return quote, nil
}
