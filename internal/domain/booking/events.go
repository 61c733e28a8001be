package booking

import (
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/daterange"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

type ReservationRequested struct {
	ReservationID ReservationID
	UnitID        catalog.UnitID
	GuestID       string
	Range         daterange.DateRange
	Total         money.Money
	At            time.Time
}

func (e ReservationRequested) EventName() string     { return "reservation.requested" }
func (e ReservationRequested) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationRequested) OccurredAt() time.Time { return e.At }

type ReservationConfirmed struct {
	ReservationID ReservationID
	UnitID        catalog.UnitID
	Range         daterange.DateRange
	Total         money.Money
	At            time.Time
}

func (e ReservationConfirmed) EventName() string     { return "reservation.confirmed" }
func (e ReservationConfirmed) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationConfirmed) OccurredAt() time.Time { return e.At }

type ReservationCanceled struct {
	ReservationID ReservationID
	UnitID        catalog.UnitID
	Refund        money.Money
	At            time.Time
}

func (e ReservationCanceled) EventName() string     { return "reservation.canceled" }
func (e ReservationCanceled) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationCanceled) OccurredAt() time.Time { return e.At }

type ReservationExpired struct {
	ReservationID ReservationID
	UnitID        catalog.UnitID
	At            time.Time
}

func (e ReservationExpired) EventName() string     { return "reservation.expired" }
func (e ReservationExpired) AggregateID() string   { return string(e.ReservationID) }
func (e ReservationExpired) OccurredAt() time.Time { return e.At }
