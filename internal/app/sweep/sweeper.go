package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/outbox"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/policies"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/app/uow"
	"github.com/Almog1339/ChabbyNb-API-sub000/internal/domain/shared/clock"
)

var ErrSweeperNotConfigured = errors.New("sweep: sweeper missing dependencies")

// Sweeper expires stale unpaid reservations on a fixed interval. Anything
// still Pending/Pending past the pending TTL is canceled and the guest is
// notified. Notice failures never abort the batch.
type Sweeper struct {
	UoW        uow.Factory
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Clock      clock.Clock
	Logger     *slog.Logger
	Interval   time.Duration
	PendingTTL time.Duration
}

// Run ticks until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.UoW == nil || s.Clock == nil {
		return ErrSweeperNotConfigured
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.Logger.Error("expiration sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce runs a single pass and returns how many reservations expired.
// All status changes of a pass commit in one batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.Clock.Now()
	cutoff := now.Add(-s.pendingTTL())

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	stale, err := unit.Reservations().StaleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		if err := unit.Commit(ctx); err != nil {
			return 0, err
		}
		committed = true
		return 0, nil
	}

	expired := stale[:0]
	for _, resv := range stale {
		if err := resv.Expire(now); err != nil {
			// Raced by a concurrent confirmation or cancellation; skip it.
			s.Logger.Warn("skipping reservation during sweep",
				"reservation_id", resv.ID, "error", err)
			continue
		}
		if err := unit.Reservations().Save(ctx, resv); err != nil {
			return 0, err
		}
		evs := resv.PendingEvents()
		resv.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, s.Outbox, nil, evs); err != nil {
			return 0, err
		}
		expired = append(expired, resv)
	}
	if err := unit.Commit(ctx); err != nil {
		return 0, err
	}
	committed = true

	for _, resv := range expired {
		if s.Notifier == nil {
			continue
		}
		if err := s.Notifier.Send(ctx, resv.GuestID, policies.TemplateBookingExpired, map[string]any{
			"reservation_code": resv.Code,
		}); err != nil {
			s.Logger.Warn("expiration notice failed",
				"reservation_id", resv.ID, "error", err)
		}
	}

	s.Logger.Info("expired stale reservations", "count", len(expired), "cutoff", cutoff)
	return len(expired), nil
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return time.Minute
	}
	return s.Interval
}

func (s *Sweeper) pendingTTL() time.Duration {
	if s.PendingTTL <= 0 {
		return 10 * time.Minute
	}
	return s.PendingTTL
}
