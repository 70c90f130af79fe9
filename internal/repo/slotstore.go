package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/transitlab/traffic-service/internal/domain"
)

// SlotStore composes the per-transaction SlotRepo operations into the
// single-step transactions the saga orchestrator works with. Each method
// opens its own serializable transaction: a step's effect is durable the
// moment the method returns, which is what lets compensation operate on
// committed state instead of a shared rollback.
type SlotStore struct {
	pool      *pgxpool.Pool
	provision ProvisionFunc
	log       *slog.Logger
}

// NewSlotStore constructs a SlotStore over the given pool. provision assigns
// capacity to lazily created slots; log receives the no-op and anomaly
// notices from release paths.
func NewSlotStore(pool *pgxpool.Pool, provision ProvisionFunc, log *slog.Logger) *SlotStore {
	return &SlotStore{pool: pool, provision: provision, log: log}
}

// ReserveSlot reserves one unit on the step's slot in a single transaction:
// lock (or create) the row, take the unit, commit. Returns
// domain.ErrLockContended / domain.ErrSlotConflict for the caller's retry
// loop, domain.ErrCapacityExhausted when the slot is full. Serialization
// failures and deadlocks surface as ErrLockContended too: they are the same
// transient contention, visible at commit instead of at the lock.
func (s *SlotStore) ReserveSlot(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error {
	err := InTx(ctx, s.pool, func(tx pgx.Tx) error {
		r := NewSlotRepo(tx)
		slot, err := r.GetOrCreateForUpdate(ctx, step.Region, step.Kind, slotTime, step.Continent, s.provision)
		if err != nil {
			return err
		}
		return r.Reserve(ctx, slot)
	})
	return mapTxError(err)
}

// ReleaseSlot returns one unit on the step's slot in its own transaction.
// Used for best-effort compensation of an already-committed reservation.
func (s *SlotStore) ReleaseSlot(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error {
	return InTx(ctx, s.pool, func(tx pgx.Tx) error {
		outcome, err := NewSlotRepo(tx).Release(ctx, step.Region, step.Kind, slotTime)
		if err != nil {
			return err
		}
		s.logReleaseOutcome(ctx, step.Region, slotTime, outcome)
		return nil
	})
}

// ReleaseRoute returns one unit on every region's slot within one
// transaction. Used by the cancellation saga, which releases the persisted
// route atomically or not at all.
func (s *SlotStore) ReleaseRoute(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time) error {
	return InTx(ctx, s.pool, func(tx pgx.Tx) error {
		r := NewSlotRepo(tx)
		for _, region := range regions {
			outcome, err := r.Release(ctx, region, kind, slotTime)
			if err != nil {
				return fmt.Errorf("release %s: %w", region, err)
			}
			s.logReleaseOutcome(ctx, region, slotTime, outcome)
		}
		return nil
	})
}

// UnionContinents merges continent tags onto the listed country slots in one
// transaction. Bookkeeping only; capacity is untouched.
func (s *SlotStore) UnionContinents(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time, continents []string) error {
	return InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return NewSlotRepo(tx).UnionContinents(ctx, regions, kind, slotTime, continents)
	})
}

func (s *SlotStore) logReleaseOutcome(ctx context.Context, region string, slotTime time.Time, outcome ReleaseOutcome) {
	switch outcome {
	case ReleaseMissingSlot:
		s.log.InfoContext(ctx, "release: no slot row for region, skipping",
			"region", region, "slot_time", slotTime)
	case ReleaseNotReserved:
		s.log.WarnContext(ctx, "release: slot already at zero reserved, skipping decrement",
			"region", region, "slot_time", slotTime)
	}
}
