package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/transitlab/traffic-service/internal/domain"
)

// SlotStore is the transactional slot interface the saga works against.
// Each method is one committed transaction; repo.SlotStore is the Postgres
// implementation. Defining the interface here (in the consumer package)
// lets the saga tests inject an in-memory store.
type SlotStore interface {
	// ReserveSlot locks (or creates) the step's slot and takes one unit,
	// committing on return. Fails with domain.ErrLockContended /
	// domain.ErrSlotConflict (retryable) or domain.ErrCapacityExhausted
	// (terminal).
	ReserveSlot(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error

	// ReleaseSlot returns one unit on the step's slot in its own transaction.
	ReleaseSlot(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error

	// ReleaseRoute returns one unit on every region's slot in one transaction.
	ReleaseRoute(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time) error

	// UnionContinents merges continent tags onto the listed slots.
	UnionContinents(ctx context.Context, regions []string, kind domain.RegionKind, slotTime time.Time, continents []string) error
}

// RetryPolicy bounds the backoff loop around slot lock acquisition.
// Only lock contention and create conflicts are retried; capacity exhaustion
// is terminal on the first occurrence.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, first attempt included.
	MaxAttempts int
	// Base is the initial delay of the randomized exponential backoff.
	Base time.Duration
	// Cap is the upper bound on the delay between attempts.
	Cap time.Duration
}

// DefaultRetryPolicy matches the suggested bounds: base 500ms, cap 3s,
// at most 15 attempts.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 15, Base: 500 * time.Millisecond, Cap: 3 * time.Second}

// backoff builds the go-retry backoff chain for the policy.
func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.Base)
	b = retry.WithJitter(p.Base/2, b)
	b = retry.WithCappedDuration(p.Cap, b)
	// WithMaxRetries counts retries after the first attempt.
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
}

// Reservation executes single saga steps against the slot store, wrapping
// lock acquisition in the bounded retry the fail-fast NOWAIT locking demands.
type Reservation struct {
	slots  SlotStore
	policy RetryPolicy
	log    *slog.Logger
}

// NewReservation constructs a Reservation over the given store and policy.
func NewReservation(slots SlotStore, policy RetryPolicy, log *slog.Logger) *Reservation {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy
	}
	return &Reservation{slots: slots, policy: policy, log: log}
}

// ReserveStep reserves one unit on the step's slot, retrying lock contention
// and create conflicts with randomized exponential backoff. An exhausted
// retry budget escalates the last error to the orchestrator, which treats it
// like capacity exhaustion: terminal for the saga, compensation follows.
func (r *Reservation) ReserveStep(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error {
	attempt := 0
	err := retry.Do(ctx, r.policy.backoff(), func(ctx context.Context) error {
		attempt++
		err := r.slots.ReserveSlot(ctx, step, slotTime)
		if errors.Is(err, domain.ErrLockContended) || errors.Is(err, domain.ErrSlotConflict) {
			r.log.DebugContext(ctx, "slot busy, backing off",
				"region", step.Region, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("service.Reservation.ReserveStep: %s: %w", step.Region, err)
	}
	return nil
}

// ReleaseStep is the compensation for ReserveStep: it returns the reserved
// unit in its own transaction. Best-effort — a failure here means leaked
// capacity, which the caller must surface loudly, not retry forever.
func (r *Reservation) ReleaseStep(ctx context.Context, step domain.ReservationStep, slotTime time.Time) error {
	if err := r.slots.ReleaseSlot(ctx, step, slotTime); err != nil {
		return fmt.Errorf("service.Reservation.ReleaseStep: %s: %w", step.Region, err)
	}
	return nil
}
