package catalog

import (
	"context"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

type RateID string

// SeasonalRate overrides a unit's nightly price for an inclusive date span.
// On overlap the highest-priority active rate wins.
type SeasonalRate struct {
	ID       RateID
	UnitID   UnitID
	Start    time.Time
	End      time.Time
	Nightly  money.Money
	Priority int
	Active   bool
}

// Covers reports whether the rate applies to the given night.
func (r SeasonalRate) Covers(date time.Time) bool {
	d := daterange.Date(date)
	return !d.Before(daterange.Date(r.Start)) && !d.After(daterange.Date(r.End))
}

// RateFor selects the applicable seasonal rate for a night: the active rate
// covering the date with the highest priority. Ties go to the
// lexicographically smallest rate id so selection stays deterministic.
func RateFor(rates []SeasonalRate, date time.Time) (SeasonalRate, bool) {
	var best SeasonalRate
	found := false
	for _, r := range rates {
		if !r.Active || !r.Covers(date) {
			continue
		}
		if !found || r.Priority > best.Priority || (r.Priority == best.Priority && r.ID < best.ID) {
			best = r
			found = true
		}
	}
	return best, found
}

type RateRepository interface {
	ForUnit(ctx context.Context, id UnitID) ([]SeasonalRate, error)
	Save(ctx context.Context, rate *SeasonalRate) error
}
