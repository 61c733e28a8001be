package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/booking"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/catalog"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/payment"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/promotion"
)

// UnitRepository is an in-memory implementation of the catalog boundary.
type UnitRepository struct {
	mu    sync.RWMutex
	items map[catalog.UnitID]*catalog.Unit
}

func NewUnitRepository() *UnitRepository {
	return &UnitRepository{items: make(map[catalog.UnitID]*catalog.Unit)}
}

func (r *UnitRepository) ByID(ctx context.Context, id catalog.UnitID) (*catalog.Unit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.items[id]
	if !ok {
		return nil, catalog.ErrUnitNotFound
	}
	return unit, nil
}

func (r *UnitRepository) Save(ctx context.Context, unit *catalog.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[unit.ID] = unit
	return nil
}

// RateRepository stores seasonal rates per unit.
type RateRepository struct {
	mu    sync.RWMutex
	items map[catalog.UnitID][]catalog.SeasonalRate
}

func NewRateRepository() *RateRepository {
	return &RateRepository{items: make(map[catalog.UnitID][]catalog.SeasonalRate)}
}

func (r *RateRepository) ForUnit(ctx context.Context, id catalog.UnitID) ([]catalog.SeasonalRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rates := r.items[id]
	out := make([]catalog.SeasonalRate, len(rates))
	copy(out, rates)
	return out, nil
}

func (r *RateRepository) Save(ctx context.Context, rate *catalog.SeasonalRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rates := r.items[rate.UnitID]
	for i := range rates {
		if rates[i].ID == rate.ID {
			rates[i] = *rate
			return nil
		}
	}
	r.items[rate.UnitID] = append(rates, *rate)
	return nil
}

// PromotionRepository keeps codes upper-cased and guards the usage counter
// under its own lock, mirroring the atomic conditional update a SQL store
// would use.
type PromotionRepository struct {
	mu     sync.Mutex
	byID   map[string]*promotion.Promotion
	byCode map[string]*promotion.Promotion
}

func NewPromotionRepository() *PromotionRepository {
	return &PromotionRepository{
		byID:   make(map[string]*promotion.Promotion),
		byCode: make(map[string]*promotion.Promotion),
	}
}

func (r *PromotionRepository) ByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byCode[promotion.NormalizeCode(code)]
	if !ok {
		return nil, promotion.ErrPromotionNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *PromotionRepository) Redeem(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return promotion.ErrPromotionNotFound
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return promotion.ErrExhausted
	}
	p.UsageCount++
	return nil
}

func (r *PromotionRepository) Save(ctx context.Context, p *promotion.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *p
	clone.Code = promotion.NormalizeCode(clone.Code)
	r.byID[clone.ID] = &clone
	r.byCode[clone.Code] = &clone
	return nil
}

// ReservationRepository stores reservations with a version check on save,
// the same optimistic discipline the mongo implementation uses.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[booking.ReservationID]*booking.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{items: make(map[booking.ReservationID]*booking.Reservation)}
}

func (r *ReservationRepository) ByID(ctx context.Context, id booking.ReservationID) (*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resv, ok := r.items[id]
	if !ok {
		return nil, booking.ErrReservationNotFound
	}
	return resv, nil
}

func (r *ReservationRepository) ByCode(ctx context.Context, code string) (*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, resv := range r.items {
		if resv.Code == code {
			return resv, nil
		}
	}
	return nil, booking.ErrReservationNotFound
}

func (r *ReservationRepository) ActiveForUnit(ctx context.Context, unitID catalog.UnitID) ([]*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*booking.Reservation, 0)
	for _, resv := range r.items {
		if resv.UnitID == unitID && resv.Active() {
			out = append(out, resv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (r *ReservationRepository) StaleBefore(ctx context.Context, cutoff time.Time) ([]*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*booking.Reservation, 0)
	for _, resv := range r.items {
		if resv.Stale(cutoff) {
			out = append(out, resv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*booking.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*booking.Reservation, 0)
	for _, resv := range r.items {
		if resv.GuestID == guestID {
			out = append(out, resv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ReservationRepository) Save(ctx context.Context, resv *booking.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resv.Version++
	r.items[resv.ID] = resv
	return nil
}

// PaymentRepository indexes payments by id, intent and reservation.
type PaymentRepository struct {
	mu       sync.RWMutex
	items    map[string]*payment.Payment
	byIntent map[string]*payment.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		items:    make(map[string]*payment.Payment),
		byIntent: make(map[string]*payment.Payment),
	}
}

func (r *PaymentRepository) ByID(ctx context.Context, id string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (r *PaymentRepository) ByIntentID(ctx context.Context, intentID string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byIntent[intentID]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (r *PaymentRepository) ForReservation(ctx context.Context, id booking.ReservationID) ([]*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*payment.Payment, 0, 1)
	for _, p := range r.items {
		if p.ReservationID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *PaymentRepository) SucceededForReservation(ctx context.Context, id booking.ReservationID) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.items {
		if p.ReservationID == id && p.Succeeded() {
			return p, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (r *PaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version++
	r.items[p.ID] = p
	r.byIntent[p.IntentID] = p
	return nil
}

// RefundRepository indexes refunds by gateway id and payment.
type RefundRepository struct {
	mu        sync.RWMutex
	items     map[string]*payment.Refund
	byGateway map[string]*payment.Refund
}

func NewRefundRepository() *RefundRepository {
	return &RefundRepository{
		items:     make(map[string]*payment.Refund),
		byGateway: make(map[string]*payment.Refund),
	}
}

func (r *RefundRepository) ByGatewayID(ctx context.Context, gatewayRefundID string) (*payment.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refund, ok := r.byGateway[gatewayRefundID]
	if !ok {
		return nil, payment.ErrRefundNotFound
	}
	return refund, nil
}

func (r *RefundRepository) ForPayment(ctx context.Context, paymentID string) ([]*payment.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*payment.Refund, 0)
	for _, refund := range r.items {
		if refund.PaymentID == paymentID {
			out = append(out, refund)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RefundRepository) Save(ctx context.Context, refund *payment.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[refund.ID] = refund
	if refund.GatewayRefundID != "" {
		r.byGateway[refund.GatewayRefundID] = refund
	}
	return nil
}
