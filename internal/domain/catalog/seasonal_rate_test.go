package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCoversInclusiveBounds(t *testing.T) {
	rate := SeasonalRate{Start: day(2026, 7, 1), End: day(2026, 7, 31), Active: true}
	assert.True(t, rate.Covers(day(2026, 7, 1)))
	assert.True(t, rate.Covers(day(2026, 7, 31)))
	assert.False(t, rate.Covers(day(2026, 6, 30)))
	assert.False(t, rate.Covers(day(2026, 8, 1)))
}

func TestRateForPicksHighestPriority(t *testing.T) {
	rates := []SeasonalRate{
		{ID: "rate-summer", Start: day(2026, 6, 1), End: day(2026, 8, 31), Nightly: money.Must(15000, "USD"), Priority: 1, Active: true},
		{ID: "rate-july", Start: day(2026, 7, 1), End: day(2026, 7, 31), Nightly: money.Must(20000, "USD"), Priority: 5, Active: true},
	}

	got, ok := RateFor(rates, day(2026, 7, 15))
	require.True(t, ok)
	assert.Equal(t, RateID("rate-july"), got.ID)

	got, ok = RateFor(rates, day(2026, 6, 15))
	require.True(t, ok)
	assert.Equal(t, RateID("rate-summer"), got.ID)

	_, ok = RateFor(rates, day(2026, 9, 1))
	assert.False(t, ok)
}

func TestRateForSkipsInactive(t *testing.T) {
	rates := []SeasonalRate{
		{ID: "rate-off", Start: day(2026, 7, 1), End: day(2026, 7, 31), Priority: 9, Active: false},
		{ID: "rate-on", Start: day(2026, 7, 1), End: day(2026, 7, 31), Priority: 1, Active: true},
	}
	got, ok := RateFor(rates, day(2026, 7, 10))
	require.True(t, ok)
	assert.Equal(t, RateID("rate-on"), got.ID)
}

func TestRateForTieBreaksBySmallestID(t *testing.T) {
	rates := []SeasonalRate{
		{ID: "rate-b", Start: day(2026, 7, 1), End: day(2026, 7, 31), Priority: 3, Active: true},
		{ID: "rate-a", Start: day(2026, 7, 1), End: day(2026, 7, 31), Priority: 3, Active: true},
	}
	got, ok := RateFor(rates, day(2026, 7, 10))
	require.True(t, ok)
	assert.Equal(t, RateID("rate-a"), got.ID)

	// Order in the slice must not matter.
	got, ok = RateFor([]SeasonalRate{rates[1], rates[0]}, day(2026, 7, 10))
	require.True(t, ok)
	assert.Equal(t, RateID("rate-a"), got.ID)
}
