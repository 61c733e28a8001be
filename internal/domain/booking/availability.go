package booking

import (
	"context"
	"errors"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
)

// AvailabilityChecker decides whether a date range is free for a unit. The
// same checker instance serves both the pricing path and the
// reservation-creation path; keeping a single overlap predicate is what
// protects the non-overlap invariant.
type AvailabilityChecker struct {
	units        catalog.UnitRepository
	reservations ReservationRepository
}

func NewAvailabilityChecker(units catalog.UnitRepository, reservations ReservationRepository) *AvailabilityChecker {
	return &AvailabilityChecker{units: units, reservations: reservations}
}

// IsAvailable reports whether [dr.CheckIn, dr.CheckOut) is free for the
// unit. A missing or inactive unit is simply unavailable. excludeID lets a
// repricing check skip the reservation being repriced.
//
// The answer is only authoritative while the caller holds the unit-of-work
// serialization for the unit; an unserialized check-then-insert is a race.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, unitID catalog.UnitID, dr daterange.DateRange, excludeID ReservationID) (bool, error) {
	unit, err := c.units.ByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, catalog.ErrUnitNotFound) {
			return false, nil
		}
		return false, err
	}
	if !unit.Active {
		return false, nil
	}
	existing, err := c.reservations.ActiveForUnit(ctx, unitID)
	if err != nil {
		return false, err
	}
	for _, r := range existing {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if dr.Overlaps(r.Range) {
			return false, nil
		}
	}
	return true, nil
}
