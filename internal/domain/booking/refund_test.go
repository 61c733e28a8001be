package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

func TestRefundPercentTiers(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{45, 100},
		{30, 100},
		{29, 85},
		{14, 85},
		{13, 50},
		{7, 50},
		{6, 25},
		{1, 25},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RefundPercent(tt.days), "days=%d", tt.days)
	}
}

func TestDaysUntilCheckInCountsWholeDays(t *testing.T) {
	checkIn := day(2026, 7, 20)
	assert.Equal(t, 10, DaysUntilCheckIn(checkIn, day(2026, 7, 10)))
	assert.Equal(t, 0, DaysUntilCheckIn(checkIn, day(2026, 7, 20)))
	// Time of day on the cancellation does not change the tier.
	assert.Equal(t, 10, DaysUntilCheckIn(checkIn, day(2026, 7, 10).Add(23*time.Hour)))
}

func TestCalculateRefundTenDaysOut(t *testing.T) {
	paid := money.Must(35000, "USD")
	b := CalculateRefund(paid, money.Zero("USD"), day(2026, 7, 20), day(2026, 7, 10))

	assert.True(t, b.Refundable)
	assert.Equal(t, 10, b.DaysUntilCheckIn)
	assert.Equal(t, float64(50), b.Percent)
	assert.Equal(t, int64(17500), b.Amount.Amount)
	assert.Equal(t, int64(17500), b.CancellationFee.Amount)
	assert.Equal(t, int64(35000), b.RefundableBalance.Amount)
}

func TestCalculateRefundDayOfCheckIn(t *testing.T) {
	paid := money.Must(35000, "USD")
	b := CalculateRefund(paid, money.Zero("USD"), day(2026, 7, 20), day(2026, 7, 20))

	assert.False(t, b.Refundable)
	assert.Equal(t, float64(0), b.Percent)
	assert.Equal(t, int64(0), b.Amount.Amount)
}

func TestCalculateRefundAccountsForPriorRefunds(t *testing.T) {
	paid := money.Must(35000, "USD")
	b := CalculateRefund(paid, money.Must(20000, "USD"), day(2026, 8, 30), day(2026, 7, 1))

	assert.True(t, b.Refundable)
	assert.Equal(t, float64(100), b.Percent)
	assert.Equal(t, int64(15000), b.Amount.Amount)
	assert.Equal(t, int64(15000), b.RefundableBalance.Amount)
}

func TestCalculateRefundNothingLeft(t *testing.T) {
	paid := money.Must(35000, "USD")
	b := CalculateRefund(paid, paid, day(2026, 8, 30), day(2026, 7, 1))
	assert.False(t, b.Refundable)
}

func TestCalculateRefundUnpaid(t *testing.T) {
	b := CalculateRefund(money.Zero("USD"), money.Zero("USD"), day(2026, 8, 30), day(2026, 7, 1))
	assert.False(t, b.Refundable)
}
