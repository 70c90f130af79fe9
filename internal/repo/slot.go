package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/transitlab/traffic-service/internal/domain"
)

// SQLSTATE codes the locking protocol turns into retryable sentinels.
// 55P03 lock_not_available: FOR UPDATE NOWAIT found the row locked.
// 40001 serialization_failure / 40P01 deadlock_detected: transient
// transaction-level failures under serializable isolation.
const (
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ProvisionFunc assigns the total capacity for a lazily created slot.
// Called exactly once per slot, at creation; the value never changes afterwards.
type ProvisionFunc func(region string, kind domain.RegionKind) int

// SlotRepo defines the persistence operations for Slots. All operations run
// within the caller's transaction — construct the repo with a pgx.Tx and keep
// it for the lifetime of that transaction only.
//
// The locking protocol: GetOrCreateForUpdate acquires the row's exclusive
// lock (non-blocking), after which Reserve and the continent operations are
// valid until the transaction ends.
type SlotRepo interface {
	// GetOrCreateForUpdate returns the slot for (region, slotTime), exclusively
	// locked within the current transaction. The lock is acquired with NOWAIT:
	// if another transaction holds it, the call fails immediately with
	// domain.ErrLockContended rather than queuing.
	//
	// If no row exists one is created with capacity from provision; a city
	// slot with no continent supplied is tagged domain.ContinentUnknown.
	// A uniqueness conflict with a concurrent creator is surfaced as
	// domain.ErrSlotConflict after one re-lookup attempt — callers retry,
	// they never treat it as fatal.
	GetOrCreateForUpdate(ctx context.Context, region string, kind domain.RegionKind, slotTime time.Time, continent string, provision ProvisionFunc) (domain.Slot, error)

	// Reserve takes one unit of capacity on a slot previously locked by
	// GetOrCreateForUpdate in the same transaction. Returns
	// domain.ErrCapacityExhausted, leaving the slot unchanged, when no
	// capacity is free.
	Reserve(ctx context.Context, slot domain.Slot) error

	// Release returns one unit of capacity on the slot for (region, slotTime),
	// locking the row first (blocking). A missing slot or a slot with
	// reserved == 0 is not an error — release runs on compensation and
	// cancellation paths that must not crash — but the outcome tells the
	// caller what to log.
	Release(ctx context.Context, region string, kind domain.RegionKind, slotTime time.Time) (ReleaseOutcome, error)

	// UnionContinents merges the given continent tags into each listed
	// region's slot row. Pure bookkeeping for cross-continent routes; does
	// not touch capacity. Rows are locked (blocking) for the update.
	UnionContinents(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time, continents []string) error
}

// pgSlotRepo is the Postgres implementation of SlotRepo.
type pgSlotRepo struct {
	db db
}

// NewSlotRepo constructs a SlotRepo bound to the given transaction (or pool,
// for operations that do not need an enclosing transaction, such as tests).
func NewSlotRepo(db db) SlotRepo {
	return &pgSlotRepo{db: db}
}

const slotColumns = `id, region_identifier, region_kind, slot_time, capacity, reserved, continent`

func (r *pgSlotRepo) GetOrCreateForUpdate(ctx context.Context, region string, kind domain.RegionKind, slotTime time.Time, continent string, provision ProvisionFunc) (domain.Slot, error) {
	slot, err := r.lockSlot(ctx, region, kind, slotTime)
	if err == nil {
		// Back-fill an empty continent tag while we hold the lock; the
		// replication bookkeeping reads it later.
		if slot.Continent == "" && continent != "" {
			slot.Continent = continent
			const q = `UPDATE slots SET continent = @continent WHERE id = @id`
			if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"continent": continent, "id": slot.ID}); err != nil {
				return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetOrCreateForUpdate: backfill continent: %w", err)
			}
		}
		return slot, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Slot{}, err
	}

	// First touch of this (region, slot_time): create the row inside the same
	// transaction, so it comes back already locked by us.
	if kind == domain.RegionCity && continent == "" {
		continent = domain.ContinentUnknown
	}

	const ins = `
		INSERT INTO slots (region_identifier, region_kind, slot_time, capacity, reserved, continent)
		VALUES (@region, @kind, @slot_time, @capacity, 0, @continent)
		ON CONFLICT (region_identifier, slot_time) DO NOTHING
		RETURNING ` + slotColumns

	args := pgx.NamedArgs{
		"region":    region,
		"kind":      kind,
		"slot_time": slotTime,
		"capacity":  provision(region, kind),
		"continent": continent,
	}

	slot, err = scanSlot(r.db.QueryRow(ctx, ins, args))
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetOrCreateForUpdate: insert: %w", err)
	}

	// DO NOTHING inserted zero rows: someone else created the slot between
	// our lookup and our insert. Re-run the locked lookup once; if the row
	// still cannot be read, hand the conflict to the caller's retry loop.
	slot, err = r.lockSlot(ctx, region, kind, slotTime)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Slot{}, fmt.Errorf("repo.SlotRepo.GetOrCreateForUpdate: %w", domain.ErrSlotConflict)
		}
		return domain.Slot{}, err
	}
	return slot, nil
}

// lockSlot acquires the exclusive row lock with NOWAIT.
// Returns domain.ErrNotFound when no row exists and domain.ErrLockContended
// when another transaction holds the lock.
func (r *pgSlotRepo) lockSlot(ctx context.Context, region string, kind domain.RegionKind, slotTime time.Time) (domain.Slot, error) {
	const q = `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE region_identifier = @region AND region_kind = @kind AND slot_time = @slot_time
		FOR UPDATE NOWAIT`

	args := pgx.NamedArgs{"region": region, "kind": kind, "slot_time": slotTime}

	slot, err := scanSlot(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if pgErrCode(err) == codeLockNotAvailable {
			return domain.Slot{}, fmt.Errorf("repo.SlotRepo: lock %s@%s: %w", region, slotTime.Format(time.RFC3339), domain.ErrLockContended)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Slot{}, domain.ErrNotFound
		}
		return domain.Slot{}, fmt.Errorf("repo.SlotRepo: lock: %w", err)
	}
	return slot, nil
}

func (r *pgSlotRepo) Reserve(ctx context.Context, slot domain.Slot) error {
	if slot.Available() < 1 {
		return fmt.Errorf("repo.SlotRepo.Reserve: %s: %w", slot.RegionIdentifier, domain.ErrCapacityExhausted)
	}

	const q = `UPDATE slots SET reserved = reserved + 1 WHERE id = @id`
	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": slot.ID})
	if err != nil {
		return fmt.Errorf("repo.SlotRepo.Reserve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SlotRepo.Reserve: %w", domain.ErrNotFound)
	}
	return nil
}

// ReleaseOutcome reports what Release actually did.
type ReleaseOutcome int

const (
	// Released means one reserved unit was returned to the slot.
	Released ReleaseOutcome = iota
	// ReleaseMissingSlot means no slot row exists for the key — a no-op.
	ReleaseMissingSlot
	// ReleaseNotReserved means the slot's reserved count was already 0.
	// An anomaly under the reserved-counter invariant; never corrected by
	// going negative.
	ReleaseNotReserved
)

func (r *pgSlotRepo) Release(ctx context.Context, region string, kind domain.RegionKind, slotTime time.Time) (ReleaseOutcome, error) {
	// Blocking lock here: release runs on compensation and cancellation paths,
	// where waiting briefly beats failing.
	const q = `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE region_identifier = @region AND region_kind = @kind AND slot_time = @slot_time
		FOR UPDATE`

	args := pgx.NamedArgs{"region": region, "kind": kind, "slot_time": slotTime}

	slot, err := scanSlot(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A release racing a not-yet-materialized slot. Pathological but
			// harmless — nothing to decrement.
			return ReleaseMissingSlot, nil
		}
		return 0, fmt.Errorf("repo.SlotRepo.Release: %w", err)
	}

	if slot.Reserved == 0 {
		return ReleaseNotReserved, nil
	}

	const upd = `UPDATE slots SET reserved = reserved - 1 WHERE id = @id`
	if _, err := r.db.Exec(ctx, upd, pgx.NamedArgs{"id": slot.ID}); err != nil {
		return 0, fmt.Errorf("repo.SlotRepo.Release: %w", err)
	}
	return Released, nil
}

func (r *pgSlotRepo) UnionContinents(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time, continents []string) error {
	for _, region := range regions {
		const q = `
			SELECT ` + slotColumns + `
			FROM slots
			WHERE region_identifier = @region AND region_kind = @kind AND slot_time = @slot_time
			FOR UPDATE`

		slot, err := scanSlot(r.db.QueryRow(ctx, q, pgx.NamedArgs{"region": region, "kind": kind, "slot_time": slotTime}))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("repo.SlotRepo.UnionContinents: %s: %w", region, err)
		}

		merged := unionTags(slot.Continent, continents)
		if merged == slot.Continent {
			continue
		}

		const upd = `UPDATE slots SET continent = @continent WHERE id = @id`
		if _, err := r.db.Exec(ctx, upd, pgx.NamedArgs{"continent": merged, "id": slot.ID}); err != nil {
			return fmt.Errorf("repo.SlotRepo.UnionContinents: %s: %w", region, err)
		}
	}
	return nil
}

// unionTags merges extra tags into a comma-separated tag list, preserving
// order and skipping duplicates and empties.
func unionTags(current string, extra []string) string {
	var tags []string
	seen := map[string]bool{}
	for _, t := range strings.Split(current, ",") {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			tags = append(tags, t)
			seen[t] = true
		}
	}
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" && !seen[t] {
			tags = append(tags, t)
			seen[t] = true
		}
	}
	return strings.Join(tags, ",")
}

// scanSlot maps a single database row into a domain.Slot.
func scanSlot(s scanner) (domain.Slot, error) {
	var (
		slot domain.Slot
		id   pgtype.UUID
		kind string
	)

	err := s.Scan(&id, &slot.RegionIdentifier, &kind, &slot.SlotTime, &slot.Capacity, &slot.Reserved, &slot.Continent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Slot{}, domain.ErrNotFound
		}
		return domain.Slot{}, err
	}

	slot.ID = uuid.UUID(id.Bytes)
	slot.RegionKind = domain.RegionKind(kind)
	return slot, nil
}
