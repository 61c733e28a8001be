package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/fault"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeUnits map[catalog.UnitID]*catalog.Unit

func (f fakeUnits) ByID(ctx context.Context, id catalog.UnitID) (*catalog.Unit, error) {
	u, ok := f[id]
	if !ok {
		return nil, catalog.ErrUnitNotFound
	}
	return u, nil
}
func (f fakeUnits) Save(ctx context.Context, u *catalog.Unit) error {
	f[u.ID] = u
	return nil
}

type fakeRates map[catalog.UnitID][]catalog.SeasonalRate

func (f fakeRates) ForUnit(ctx context.Context, id catalog.UnitID) ([]catalog.SeasonalRate, error) {
	return f[id], nil
}
func (f fakeRates) Save(ctx context.Context, r *catalog.SeasonalRate) error {
	f[r.UnitID] = append(f[r.UnitID], *r)
	return nil
}

type fakePromos map[string]*promotion.Promotion

func (f fakePromos) ByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	p, ok := f[promotion.NormalizeCode(code)]
	if !ok {
		return nil, promotion.ErrPromotionNotFound
	}
	return p, nil
}
func (f fakePromos) Redeem(ctx context.Context, id string) error { return nil }
func (f fakePromos) Save(ctx context.Context, p *promotion.Promotion) error {
	f[p.Code] = p
	return nil
}

type fakeAvailability struct {
	available bool
}

func (f fakeAvailability) IsAvailable(ctx context.Context, unitID catalog.UnitID, dr daterange.DateRange, excludeID booking.ReservationID) (bool, error) {
	return f.available, nil
}

func testEngine(promos fakePromos, available bool) *Engine {
	units := fakeUnits{
		"unit-1": {
			ID:           "unit-1",
			Title:        "Seaside studio",
			NightlyRate:  money.Must(10000, "USD"),
			PetFee:       money.Must(2500, "USD"),
			PetsAllowed:  true,
			MaxOccupancy: 4,
			Active:       true,
		},
		"unit-nopets": {ID: "unit-nopets", NightlyRate: money.Must(10000, "USD"), MaxOccupancy: 2, Active: true},
		"unit-dark":   {ID: "unit-dark", NightlyRate: money.Must(10000, "USD"), MaxOccupancy: 2, Active: false},
	}
	rates := fakeRates{
		"unit-1": {
			{ID: "rate-mid", UnitID: "unit-1", Start: day(2026, 7, 11), End: day(2026, 7, 11), Nightly: money.Must(15000, "USD"), Priority: 1, Active: true},
		},
	}
	return NewEngine(units, rates, promotion.NewValidator(promos), fakeAvailability{available: available})
}

func stay(t *testing.T, in, out time.Time) daterange.DateRange {
	t.Helper()
	dr, err := daterange.New(in, out)
	require.NoError(t, err)
	return dr
}

func TestQuoteBaseRateOnly(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	// Three nights outside any seasonal rate.
	q, err := e.Quote(context.Background(), QuoteInput{
		UnitID: "unit-1",
		Range:  stay(t, day(2026, 6, 1), day(2026, 6, 4)),
		Guests: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30000), q.BasePrice.Amount)
	assert.Equal(t, int64(0), q.PetFee.Amount)
	assert.Equal(t, int64(0), q.Discount.Amount)
	assert.Equal(t, int64(30000), q.Total.Amount)
	require.Len(t, q.Nights, 3)
	for _, n := range q.Nights {
		assert.Equal(t, SourceBase, n.Source)
	}
}

func TestQuoteSeasonalOverride(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	// July 10..13: the middle night is covered by rate-mid.
	q, err := e.Quote(context.Background(), QuoteInput{
		UnitID: "unit-1",
		Range:  stay(t, day(2026, 7, 10), day(2026, 7, 13)),
		Guests: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(35000), q.BasePrice.Amount)
	require.Len(t, q.Nights, 3)
	assert.Equal(t, SourceBase, q.Nights[0].Source)
	assert.Equal(t, SourceSeasonal, q.Nights[1].Source)
	assert.Equal(t, catalog.RateID("rate-mid"), q.Nights[1].RateID)
	assert.Equal(t, SourceBase, q.Nights[2].Source)
}

func TestQuoteAppliesPercentagePromotion(t *testing.T) {
	promos := fakePromos{
		"SUMMER10": {ID: "p1", Code: "SUMMER10", Kind: promotion.Percentage, PercentOff: 10, Active: true},
	}
	e := testEngine(promos, true)
	q, err := e.Quote(context.Background(), QuoteInput{
		UnitID:    "unit-1",
		Range:     stay(t, day(2026, 7, 10), day(2026, 7, 13)),
		Guests:    2,
		PromoCode: "summer10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(35000), q.BasePrice.Amount)
	assert.Equal(t, int64(3500), q.Discount.Amount)
	assert.Equal(t, int64(31500), q.Total.Amount)
	assert.Equal(t, "SUMMER10", q.PromoCode)
}

func TestQuotePetFee(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	q, err := e.Quote(context.Background(), QuoteInput{
		UnitID: "unit-1",
		Range:  stay(t, day(2026, 6, 1), day(2026, 6, 4)),
		Guests: 2,
		Pets:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), q.PetFee.Amount)
	assert.Equal(t, int64(35000), q.Total.Amount)
}

func TestQuoteValidationFailures(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	dr := stay(t, day(2026, 6, 1), day(2026, 6, 4))

	tests := []struct {
		name string
		in   QuoteInput
	}{
		{"zero guests", QuoteInput{UnitID: "unit-1", Range: dr, Guests: 0}},
		{"over occupancy", QuoteInput{UnitID: "unit-1", Range: dr, Guests: 5}},
		{"negative pets", QuoteInput{UnitID: "unit-1", Range: dr, Guests: 2, Pets: -1}},
		{"pets not allowed", QuoteInput{UnitID: "unit-nopets", Range: dr, Guests: 1, Pets: 1}},
		{"inactive unit", QuoteInput{UnitID: "unit-dark", Range: dr, Guests: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Quote(context.Background(), tt.in)
			assert.ErrorIs(t, err, fault.ErrValidation)
		})
	}
}

func TestQuoteUnknownUnit(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	_, err := e.Quote(context.Background(), QuoteInput{
		UnitID: "missing",
		Range:  stay(t, day(2026, 6, 1), day(2026, 6, 4)),
		Guests: 1,
	})
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestQuoteOccupiedRangeIsConflict(t *testing.T) {
	e := testEngine(fakePromos{}, false)
	_, err := e.Quote(context.Background(), QuoteInput{
		UnitID: "unit-1",
		Range:  stay(t, day(2026, 6, 1), day(2026, 6, 4)),
		Guests: 2,
	})
	assert.ErrorIs(t, err, fault.ErrConflict)
}

func TestQuoteIneligiblePromotionIsConflict(t *testing.T) {
	promos := fakePromos{
		"SUMMER10": {ID: "p1", Code: "SUMMER10", Kind: promotion.Percentage, PercentOff: 10, Active: false},
	}
	e := testEngine(promos, true)
	_, err := e.Quote(context.Background(), QuoteInput{
		UnitID:    "unit-1",
		Range:     stay(t, day(2026, 6, 1), day(2026, 6, 4)),
		Guests:    2,
		PromoCode: "SUMMER10",
	})
	assert.ErrorIs(t, err, fault.ErrConflict)
}

func TestDailyPricesDeterministic(t *testing.T) {
	e := testEngine(fakePromos{}, true)
	dr := stay(t, day(2026, 7, 10), day(2026, 7, 13))

	first, err := e.DailyPrices(context.Background(), "unit-1", dr)
	require.NoError(t, err)
	second, err := e.DailyPrices(context.Background(), "unit-1", dr)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
