package repo_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/traffic-service/internal/domain"
	"github.com/transitlab/traffic-service/internal/repo"
	"github.com/transitlab/traffic-service/testutil"
)

// newTestTx opens a transaction against the test database that is rolled
// back when the test finishes, giving free per-test isolation.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})

	return tx
}

// uniqueRegion returns a region identifier no other test run has used, for
// tests that must commit rows rather than roll them back.
func uniqueRegion(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func slotTimeFixture() time.Time {
	return time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)
}

// fixedCapacity returns a ProvisionFunc that always assigns n.
func fixedCapacity(n int) repo.ProvisionFunc {
	return func(string, domain.RegionKind) int { return n }
}

func TestSlotRepo_GetOrCreateForUpdate_CreatesCitySlot(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	slot, err := r.GetOrCreateForUpdate(ctx, "Lisbon", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(7))

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, slot.ID, "ID should be DB-generated UUID")
	assert.Equal(t, "Lisbon", slot.RegionIdentifier)
	assert.Equal(t, domain.RegionCity, slot.RegionKind)
	assert.Equal(t, 7, slot.Capacity)
	assert.Equal(t, 0, slot.Reserved)
	assert.Equal(t, domain.ContinentUnknown, slot.Continent,
		"city slot created without a continent should be tagged Unknown")
}

func TestSlotRepo_GetOrCreateForUpdate_ReturnsExistingUnchanged(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	created, err := r.GetOrCreateForUpdate(ctx, "Porto", domain.RegionCity, slotTimeFixture(), "Europe", fixedCapacity(5))
	require.NoError(t, err)

	// Provision must not run again for an existing slot.
	calls := 0
	counting := func(string, domain.RegionKind) int { calls++; return 99 }

	got, err := r.GetOrCreateForUpdate(ctx, "Porto", domain.RegionCity, slotTimeFixture(), "Europe", counting)

	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 5, got.Capacity, "capacity is assigned once, at creation")
	assert.Zero(t, calls, "provision should not be called for an existing slot")
}

func TestSlotRepo_GetOrCreateForUpdate_BackfillsContinent(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	// Country slots start with no continent tag.
	created, err := r.GetOrCreateForUpdate(ctx, "PT", domain.RegionCountry, slotTimeFixture(), "", fixedCapacity(30))
	require.NoError(t, err)
	require.Empty(t, created.Continent)

	got, err := r.GetOrCreateForUpdate(ctx, "PT", domain.RegionCountry, slotTimeFixture(), "Europe", fixedCapacity(30))

	require.NoError(t, err)
	assert.Equal(t, "Europe", got.Continent)
}

func TestSlotRepo_Reserve_UntilExhausted(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	slot, err := r.GetOrCreateForUpdate(ctx, "Faro", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(2))
	require.NoError(t, err)

	require.NoError(t, r.Reserve(ctx, slot))

	slot, err = r.GetOrCreateForUpdate(ctx, "Faro", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(2))
	require.NoError(t, err)
	assert.Equal(t, 1, slot.Reserved)
	require.NoError(t, r.Reserve(ctx, slot))

	slot, err = r.GetOrCreateForUpdate(ctx, "Faro", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(2))
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Reserved)

	err = r.Reserve(ctx, slot)

	assert.ErrorIs(t, err, domain.ErrCapacityExhausted)

	// The failed reserve must leave the counter untouched.
	slot, err = r.GetOrCreateForUpdate(ctx, "Faro", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(2))
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Reserved)
}

func TestSlotRepo_Release_Outcomes(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	slot, err := r.GetOrCreateForUpdate(ctx, "Braga", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(3))
	require.NoError(t, err)
	require.NoError(t, r.Reserve(ctx, slot))

	outcome, err := r.Release(ctx, "Braga", domain.RegionCity, slotTimeFixture())
	require.NoError(t, err)
	assert.Equal(t, repo.Released, outcome)

	// Reserved is back at zero; a second release must not go negative.
	outcome, err = r.Release(ctx, "Braga", domain.RegionCity, slotTimeFixture())
	require.NoError(t, err)
	assert.Equal(t, repo.ReleaseNotReserved, outcome)

	slot, err = r.GetOrCreateForUpdate(ctx, "Braga", domain.RegionCity, slotTimeFixture(), "", fixedCapacity(3))
	require.NoError(t, err)
	assert.Equal(t, 0, slot.Reserved)

	// Releasing a slot that never existed is a logged no-op, not an error.
	outcome, err = r.Release(ctx, "Atlantis", domain.RegionCity, slotTimeFixture())
	require.NoError(t, err)
	assert.Equal(t, repo.ReleaseMissingSlot, outcome)
}

func TestSlotRepo_UnionContinents(t *testing.T) {
	r := repo.NewSlotRepo(newTestTx(t))
	ctx := context.Background()

	_, err := r.GetOrCreateForUpdate(ctx, "US", domain.RegionCountry, slotTimeFixture(), "North America", fixedCapacity(50))
	require.NoError(t, err)
	_, err = r.GetOrCreateForUpdate(ctx, "FR", domain.RegionCountry, slotTimeFixture(), "Europe", fixedCapacity(50))
	require.NoError(t, err)

	err = r.UnionContinents(ctx, []string{"US", "FR", "ZZ"}, domain.RegionCountry, slotTimeFixture(),
		[]string{"North America", "Europe"})
	require.NoError(t, err)

	us, err := r.GetOrCreateForUpdate(ctx, "US", domain.RegionCountry, slotTimeFixture(), "", fixedCapacity(50))
	require.NoError(t, err)
	assert.Equal(t, "North America,Europe", us.Continent)

	fr, err := r.GetOrCreateForUpdate(ctx, "FR", domain.RegionCountry, slotTimeFixture(), "", fixedCapacity(50))
	require.NoError(t, err)
	assert.Equal(t, "Europe,North America", fr.Continent)
}

// TestSlotRepo_GetOrCreateForUpdate_LockContended verifies the NOWAIT
// protocol: while one transaction holds a slot's row lock, a second
// transaction fails fast with ErrLockContended instead of queuing.
func TestSlotRepo_GetOrCreateForUpdate_LockContended(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()

	region := uniqueRegion("lock")

	// The row must be committed so both transactions can see it.
	_, err := pool.Exec(ctx, `
		INSERT INTO slots (region_identifier, region_kind, slot_time, capacity, reserved, continent)
		VALUES ($1, 'city', $2, 5, 0, 'Unknown')`, region, slotTimeFixture())
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM slots WHERE region_identifier = $1`, region)
	})

	tx1, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx1.Rollback(ctx)

	_, err = repo.NewSlotRepo(tx1).GetOrCreateForUpdate(ctx, region, domain.RegionCity, slotTimeFixture(), "", fixedCapacity(5))
	require.NoError(t, err, "first transaction should take the lock")

	tx2, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx2.Rollback(ctx)

	_, err = repo.NewSlotRepo(tx2).GetOrCreateForUpdate(ctx, region, domain.RegionCity, slotTimeFixture(), "", fixedCapacity(5))

	assert.ErrorIs(t, err, domain.ErrLockContended)
}

// TestSlotStore_ReserveSlot exercises the one-step-one-transaction wrapper:
// the reservation is durable the moment ReserveSlot returns.
func TestSlotStore_ReserveSlot(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()

	region := uniqueRegion("store")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM slots WHERE region_identifier = $1`, region)
	})

	store := repo.NewSlotStore(pool, fixedCapacity(2), slog.New(slog.NewTextHandler(io.Discard, nil)))
	step := domain.ReservationStep{Region: region, Kind: domain.RegionCity, Continent: "Europe"}

	require.NoError(t, store.ReserveSlot(ctx, step, slotTimeFixture()))
	require.NoError(t, store.ReserveSlot(ctx, step, slotTimeFixture()))

	err := store.ReserveSlot(ctx, step, slotTimeFixture())
	assert.ErrorIs(t, err, domain.ErrCapacityExhausted)

	var reserved int
	err = pool.QueryRow(ctx, `SELECT reserved FROM slots WHERE region_identifier = $1`, region).Scan(&reserved)
	require.NoError(t, err)
	assert.Equal(t, 2, reserved, "each successful step is committed independently")
}

func TestSlotStore_ReleaseRoute(t *testing.T) {
	pool := testutil.NewPool(t)
	ctx := context.Background()

	regionA := uniqueRegion("route-a")
	regionB := uniqueRegion("route-b")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM slots WHERE region_identifier IN ($1, $2)`, regionA, regionB)
	})

	store := repo.NewSlotStore(pool, fixedCapacity(4), slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, region := range []string{regionA, regionB} {
		step := domain.ReservationStep{Region: region, Kind: domain.RegionCountry}
		require.NoError(t, store.ReserveSlot(ctx, step, slotTimeFixture()))
	}

	err := store.ReleaseRoute(ctx, []string{regionA, regionB}, domain.RegionCountry, slotTimeFixture())
	require.NoError(t, err)

	for _, region := range []string{regionA, regionB} {
		var reserved int
		err = pool.QueryRow(ctx, `SELECT reserved FROM slots WHERE region_identifier = $1`, region).Scan(&reserved)
		require.NoError(t, err)
		assert.Equal(t, 0, reserved)
	}
}
