package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
)

type UnitRepository struct {
	col *mongo.Collection
}

func NewUnitRepository(db *mongo.Database) *UnitRepository {
	return &UnitRepository{col: db.Collection("agg_unit")}
}

func (r *UnitRepository) ByID(ctx context.Context, id catalog.UnitID) (*catalog.Unit, error) {
	var doc unitDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrUnitNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UnitRepository) Save(ctx context.Context, unit *catalog.Unit) error {
	doc := newUnitDocument(unit)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type unitDocument struct {
	ID           string        `bson:"_id"`
	Title        string        `bson:"title"`
	NightlyRate  moneyDocument `bson:"nightly_rate"`
	PetFee       moneyDocument `bson:"pet_fee"`
	PetsAllowed  bool          `bson:"pets_allowed"`
	MaxOccupancy int           `bson:"max_occupancy"`
	Active       bool          `bson:"active"`
}

func newUnitDocument(u *catalog.Unit) unitDocument {
	return unitDocument{
		ID:           string(u.ID),
		Title:        u.Title,
		NightlyRate:  newMoneyDocument(u.NightlyRate),
		PetFee:       newMoneyDocument(u.PetFee),
		PetsAllowed:  u.PetsAllowed,
		MaxOccupancy: u.MaxOccupancy,
		Active:       u.Active,
	}
}

func (d unitDocument) toAggregate() *catalog.Unit {
	return &catalog.Unit{
		ID:           catalog.UnitID(d.ID),
		Title:        d.Title,
		NightlyRate:  d.NightlyRate.toMoney(),
		PetFee:       d.PetFee.toMoney(),
		PetsAllowed:  d.PetsAllowed,
		MaxOccupancy: d.MaxOccupancy,
		Active:       d.Active,
	}
}

type RateRepository struct {
	col *mongo.Collection
}

func NewRateRepository(db *mongo.Database) *RateRepository {
	return &RateRepository{col: db.Collection("agg_seasonal_rate")}
}

func (r *RateRepository) ForUnit(ctx context.Context, id catalog.UnitID) ([]catalog.SeasonalRate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"unit_id": string(id)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []catalog.SeasonalRate
	for cur.Next(ctx) {
		var doc rateDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRate())
	}
	return out, cur.Err()
}

func (r *RateRepository) Save(ctx context.Context, rate *catalog.SeasonalRate) error {
	doc := newRateDocument(rate)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type rateDocument struct {
	ID       string        `bson:"_id"`
	UnitID   string        `bson:"unit_id"`
	Start    int64         `bson:"start"`
	End      int64         `bson:"end"`
	Nightly  moneyDocument `bson:"nightly"`
	Priority int           `bson:"priority"`
	Active   bool          `bson:"active"`
}

func newRateDocument(r *catalog.SeasonalRate) rateDocument {
	return rateDocument{
		ID:       string(r.ID),
		UnitID:   string(r.UnitID),
		Start:    r.Start.UnixMilli(),
		End:      r.End.UnixMilli(),
		Nightly:  newMoneyDocument(r.Nightly),
		Priority: r.Priority,
		Active:   r.Active,
	}
}

func (d rateDocument) toRate() catalog.SeasonalRate {
	return catalog.SeasonalRate{
		ID:       catalog.RateID(d.ID),
		UnitID:   catalog.UnitID(d.UnitID),
		Start:    timestampToTime(d.Start),
		End:      timestampToTime(d.End),
		Nightly:  d.Nightly.toMoney(),
		Priority: d.Priority,
		Active:   d.Active,
	}
}
