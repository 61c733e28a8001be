package daterange

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("daterange: check-out must be after check-in")

// DateRange is a half-open stay interval [CheckIn, CheckOut). A night is
// billed for each date in the interval; the check-out date itself is free.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// New builds a DateRange truncating both bounds to UTC midnight.
func New(checkIn, checkOut time.Time) (DateRange, error) {
	in := Date(checkIn)
	out := Date(checkOut)
	if !out.After(in) {
		return DateRange{}, ErrInvalidRange
	}
	return DateRange{CheckIn: in, CheckOut: out}, nil
}

// Date truncates a timestamp to its UTC calendar date.
func Date(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Nights returns the number of billable nights in the range.
func (r DateRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Overlaps reports whether two half-open ranges share at least one night.
// This is the single overlap predicate used by both the pricing and the
// reservation-creation paths.
func (r DateRange) Overlaps(other DateRange) bool {
	return r.CheckIn.Before(other.CheckOut) && r.CheckOut.After(other.CheckIn)
}

// Contains reports whether the given date is one of the billed nights.
func (r DateRange) Contains(date time.Time) bool {
	d := Date(date)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

// Dates enumerates the billed nights in order.
func (r DateRange) Dates() []time.Time {
	out := make([]time.Time, 0, r.Nights())
	for d := r.CheckIn; d.Before(r.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.CheckIn.Format("2006-01-02"), r.CheckOut.Format("2006-01-02"))
}
