package catalog

import (
	"context"
	"errors"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/money"
)

var ErrUnitNotFound = errors.New("catalog: unit not found")

type UnitID string

// Unit is a rentable apartment. Owned by the catalog; the booking core reads
// it and never mutates it.
type Unit struct {
	ID           UnitID
	Title        string
	NightlyRate  money.Money
	PetFee       money.Money
	PetsAllowed  bool
	MaxOccupancy int
	Active       bool
}

type UnitRepository interface {
	ByID(ctx context.Context, id UnitID) (*Unit, error)
	Save(ctx context.Context, unit *Unit) error
}
