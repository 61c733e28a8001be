package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
)

type fakeUnits struct {
	units map[catalog.UnitID]*catalog.Unit
}

func (f *fakeUnits) ByID(ctx context.Context, id catalog.UnitID) (*catalog.Unit, error) {
	u, ok := f.units[id]
	if !ok {
		return nil, catalog.ErrUnitNotFound
	}
	return u, nil
}

func (f *fakeUnits) Save(ctx context.Context, u *catalog.Unit) error {
	f.units[u.ID] = u
	return nil
}

type fakeReservations struct {
	active []*Reservation
}

func (f *fakeReservations) ByID(ctx context.Context, id ReservationID) (*Reservation, error) {
	return nil, ErrReservationNotFound
}
func (f *fakeReservations) ByCode(ctx context.Context, code string) (*Reservation, error) {
	return nil, ErrReservationNotFound
}
func (f *fakeReservations) ActiveForUnit(ctx context.Context, unitID catalog.UnitID) ([]*Reservation, error) {
	return f.active, nil
}
func (f *fakeReservations) StaleBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error) {
	return nil, nil
}
func (f *fakeReservations) ListByGuest(ctx context.Context, guestID string) ([]*Reservation, error) {
	return nil, nil
}
func (f *fakeReservations) Save(ctx context.Context, r *Reservation) error { return nil }

func checkerWith(t *testing.T, active bool, booked ...daterange.DateRange) *AvailabilityChecker {
	t.Helper()
	units := &fakeUnits{units: map[catalog.UnitID]*catalog.Unit{
		"unit-1": {ID: "unit-1", Active: active, MaxOccupancy: 4},
	}}
	resvs := &fakeReservations{}
	for i, dr := range booked {
		resvs.active = append(resvs.active, &Reservation{
			ID:     ReservationID(string(rune('a' + i))),
			UnitID: "unit-1",
			Range:  dr,
			Status: StatusConfirmed,
		})
	}
	return NewAvailabilityChecker(units, resvs)
}

func TestIsAvailableFreeRange(t *testing.T) {
	booked, err := daterange.New(day(2026, 7, 1), day(2026, 7, 5))
	require.NoError(t, err)
	c := checkerWith(t, true, booked)

	free, err := daterange.New(day(2026, 7, 5), day(2026, 7, 8))
	require.NoError(t, err)
	ok, err := c.IsAvailable(context.Background(), "unit-1", free, "")
	require.NoError(t, err)
	assert.True(t, ok, "back-to-back with an existing check-out must be free")

	clash, err := daterange.New(day(2026, 7, 4), day(2026, 7, 6))
	require.NoError(t, err)
	ok, err = c.IsAvailable(context.Background(), "unit-1", clash, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailableUnknownOrInactiveUnit(t *testing.T) {
	c := checkerWith(t, false)
	dr, err := daterange.New(day(2026, 7, 1), day(2026, 7, 3))
	require.NoError(t, err)

	ok, err := c.IsAvailable(context.Background(), "unit-1", dr, "")
	require.NoError(t, err)
	assert.False(t, ok, "inactive unit is unavailable, not an error")

	ok, err = c.IsAvailable(context.Background(), "missing", dr, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailableExcludesGivenReservation(t *testing.T) {
	booked, err := daterange.New(day(2026, 7, 1), day(2026, 7, 5))
	require.NoError(t, err)
	c := checkerWith(t, true, booked)

	ok, err := c.IsAvailable(context.Background(), "unit-1", booked, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}
