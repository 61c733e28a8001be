package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
)

type PromotionRepository struct {
	col *mongo.Collection
}

func NewPromotionRepository(db *mongo.Database) *PromotionRepository {
	return &PromotionRepository{col: db.Collection("agg_promotion")}
}

func (r *PromotionRepository) ByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	var doc promotionDocument
	filter := bson.M{"code": promotion.NormalizeCode(code)}
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, promotion.ErrPromotionNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Redeem bumps the usage counter with a single conditional update so two
// concurrent redemptions of the last remaining use cannot both pass. The
// counter only ever goes up.
func (r *PromotionRepository) Redeem(ctx context.Context, id string) error {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"usage_limit": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usage_count", "$usage_limit"}}},
		},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"usage_count": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		var doc promotionDocument
		if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return promotion.ErrPromotionNotFound
			}
			return err
		}
		return promotion.ErrExhausted
	}
	return nil
}

func (r *PromotionRepository) Save(ctx context.Context, p *promotion.Promotion) error {
	doc := newPromotionDocument(p)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type promotionDocument struct {
	ID         string        `bson:"_id"`
	Code       string        `bson:"code"`
	UnitID     *string       `bson:"unit_id"`
	Kind       int           `bson:"kind"`
	PercentOff float64       `bson:"percent_off"`
	AmountOff  moneyDocument `bson:"amount_off"`

	MinStayNights    *int           `bson:"min_stay_nights"`
	MinBookingAmount *moneyDocument `bson:"min_booking_amount"`
	MaxDiscount      *moneyDocument `bson:"max_discount"`
	ValidFrom        *int64         `bson:"valid_from"`
	ValidTo          *int64         `bson:"valid_to"`
	UsageLimit       *int           `bson:"usage_limit"`

	UsageCount int  `bson:"usage_count"`
	Active     bool `bson:"active"`
}

func newPromotionDocument(p *promotion.Promotion) promotionDocument {
	doc := promotionDocument{
		ID:            p.ID,
		Code:          p.Code,
		Kind:          int(p.Kind),
		PercentOff:    p.PercentOff,
		AmountOff:     newMoneyDocument(p.AmountOff),
		MinStayNights: p.MinStayNights,
		UsageLimit:    p.UsageLimit,
		UsageCount:    p.UsageCount,
		Active:        p.Active,
	}
	if p.UnitID != nil {
		s := string(*p.UnitID)
		doc.UnitID = &s
	}
	if p.MinBookingAmount != nil {
		m := newMoneyDocument(*p.MinBookingAmount)
		doc.MinBookingAmount = &m
	}
	if p.MaxDiscount != nil {
		m := newMoneyDocument(*p.MaxDiscount)
		doc.MaxDiscount = &m
	}
	if p.ValidFrom != nil {
		ms := p.ValidFrom.UnixMilli()
		doc.ValidFrom = &ms
	}
	if p.ValidTo != nil {
		ms := p.ValidTo.UnixMilli()
		doc.ValidTo = &ms
	}
	return doc
}

func (d promotionDocument) toAggregate() *promotion.Promotion {
	p := &promotion.Promotion{
		ID:            d.ID,
		Code:          d.Code,
		Kind:          promotion.DiscountKind(d.Kind),
		PercentOff:    d.PercentOff,
		AmountOff:     d.AmountOff.toMoney(),
		MinStayNights: d.MinStayNights,
		UsageLimit:    d.UsageLimit,
		UsageCount:    d.UsageCount,
		Active:        d.Active,
	}
	if d.UnitID != nil {
		id := catalog.UnitID(*d.UnitID)
		p.UnitID = &id
	}
	if d.MinBookingAmount != nil {
		m := d.MinBookingAmount.toMoney()
		p.MinBookingAmount = &m
	}
	if d.MaxDiscount != nil {
		m := d.MaxDiscount.toMoney()
		p.MaxDiscount = &m
	}
	if d.ValidFrom != nil {
		t := timestampToTime(*d.ValidFrom)
		p.ValidFrom = &t
	}
	if d.ValidTo != nil {
		t := timestampToTime(*d.ValidTo)
		p.ValidTo = &t
	}
	return p
}
