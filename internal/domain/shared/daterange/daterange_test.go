package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out time.Time) DateRange {
	t.Helper()
	dr, err := New(in, out)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	_, err := New(day(2026, 6, 10), day(2026, 6, 10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(day(2026, 6, 10), day(2026, 6, 5))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewTruncatesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2026, 6, 10, 18, 30, 0, 0, loc)
	out := time.Date(2026, 6, 12, 9, 0, 0, 0, loc)

	dr, err := New(in, out)
	require.NoError(t, err)
	assert.Equal(t, day(2026, 6, 10), dr.CheckIn)
	assert.Equal(t, day(2026, 6, 12), dr.CheckOut)
	assert.Equal(t, 2, dr.Nights())
}

func TestOverlapsHalfOpen(t *testing.T) {
	base := mustRange(t, day(2026, 6, 10), day(2026, 6, 15))

	tests := []struct {
		name    string
		in, out time.Time
		want    bool
	}{
		{"identical", day(2026, 6, 10), day(2026, 6, 15), true},
		{"contained", day(2026, 6, 11), day(2026, 6, 13), true},
		{"overlap left", day(2026, 6, 8), day(2026, 6, 11), true},
		{"overlap right", day(2026, 6, 14), day(2026, 6, 18), true},
		{"surrounds", day(2026, 6, 8), day(2026, 6, 20), true},
		{"back to back after", day(2026, 6, 15), day(2026, 6, 18), false},
		{"back to back before", day(2026, 6, 8), day(2026, 6, 10), false},
		{"disjoint", day(2026, 6, 20), day(2026, 6, 22), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := mustRange(t, tt.in, tt.out)
			assert.Equal(t, tt.want, base.Overlaps(other))
			assert.Equal(t, tt.want, other.Overlaps(base))
		})
	}
}

func TestContainsExcludesCheckOut(t *testing.T) {
	dr := mustRange(t, day(2026, 6, 10), day(2026, 6, 12))
	assert.True(t, dr.Contains(day(2026, 6, 10)))
	assert.True(t, dr.Contains(day(2026, 6, 11)))
	assert.False(t, dr.Contains(day(2026, 6, 12)))
}

func TestDatesEnumeratesNights(t *testing.T) {
	dr := mustRange(t, day(2026, 6, 10), day(2026, 6, 13))
	dates := dr.Dates()
	require.Len(t, dates, 3)
	assert.Equal(t, day(2026, 6, 10), dates[0])
	assert.Equal(t, day(2026, 6, 12), dates[2])
}
