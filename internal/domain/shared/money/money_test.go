package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1500, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.Equal(t, int64(1500), m.Amount)

	_, err = New(100, "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestAddSubCurrencyMismatch(t *testing.T) {
	usd := Must(100, "USD")
	eur := Must(100, "EUR")

	_, err := usd.Add(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = usd.Sub(eur)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := usd.Add(Must(250, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(350), sum.Amount)
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		amount int64
		pct    float64
		want   int64
	}{
		{10000, 50, 5000},
		{10000, 85, 8500},
		{333, 50, 167},  // 166.5 rounds up
		{101, 25, 25},   // 25.25 rounds down
		{10000, 0, 0},
		{10000, 100, 10000},
	}
	for _, tt := range tests {
		got := Must(tt.amount, "USD").Percent(tt.pct)
		assert.Equal(t, tt.want, got.Amount, "%d @ %.0f%%", tt.amount, tt.pct)
	}
}

func TestMin(t *testing.T) {
	a := Must(500, "USD")
	b := Must(300, "USD")

	got, err := a.Min(b)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Amount)

	got, err = b.Min(a)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got.Amount)
}

func TestString(t *testing.T) {
	assert.Equal(t, "120.50 USD", Must(12050, "USD").String())
	assert.Equal(t, "0.05 EUR", Must(5, "EUR").String())
}
