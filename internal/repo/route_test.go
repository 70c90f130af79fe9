package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/traffic-service/internal/domain"
	"github.com/transitlab/traffic-service/internal/repo"
)

func TestRouteRepo_SaveAndGet(t *testing.T) {
	tx := newTestTx(t)
	routes := repo.NewRouteRepo(tx)
	journeys := repo.NewJourneyRepo(tx)
	ctx := context.Background()

	journey, err := journeys.Create(ctx, journeyFixture())
	require.NoError(t, err)

	input := domain.Route{
		JourneyID: journey.ID,
		Regions:   []string{"US", "CA", "FR"},
		Kind:      domain.RegionCountry,
		SlotTime:  slotTimeFixture(),
	}

	saved, err := routes.Save(ctx, input)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID, "ID should be DB-generated UUID")
	assert.False(t, saved.CreatedAt.IsZero(), "CreatedAt should be set by DB")

	got, err := routes.GetByJourneyID(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, []string{"US", "CA", "FR"}, got.Regions, "region order must survive the round-trip")
	assert.Equal(t, domain.RegionCountry, got.Kind)
	assert.True(t, got.SlotTime.Equal(input.SlotTime), "SlotTime mismatch")
}

func TestRouteRepo_GetByJourneyID_NotFound(t *testing.T) {
	routes := repo.NewRouteRepo(newTestTx(t))
	ctx := context.Background()

	_, err := routes.GetByJourneyID(ctx, uuid.New())

	assert.ErrorIs(t, err, domain.ErrRouteNotFound)
}
