package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/transitlab/traffic-service/internal/domain"
)

// RouteRepo defines the persistence operations for Route snapshots.
type RouteRepo interface {
	// Save persists the route snapshot for a journey and returns the stored
	// record. Called exactly once, when the forward saga confirms.
	Save(ctx context.Context, route domain.Route) (domain.Route, error)

	// GetByJourneyID returns the route snapshot for a journey.
	// Returns domain.ErrRouteNotFound when no snapshot exists — the
	// cancellation saga has nothing to release then.
	GetByJourneyID(ctx context.Context, journeyID uuid.UUID) (domain.Route, error)
}

// pgRouteRepo is the Postgres implementation of RouteRepo.
type pgRouteRepo struct {
	db db
}

// NewRouteRepo constructs a RouteRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewRouteRepo(db db) RouteRepo {
	return &pgRouteRepo{db: db}
}

const routeColumns = `id, journey_id, regions, region_kind, slot_time, created_at`

func (r *pgRouteRepo) Save(ctx context.Context, route domain.Route) (domain.Route, error) {
	regions, err := json.Marshal(route.Regions)
	if err != nil {
		return domain.Route{}, fmt.Errorf("repo.RouteRepo.Save: marshal regions: %w", err)
	}

	const q = `
		INSERT INTO routes (journey_id, regions, region_kind, slot_time)
		VALUES (@journey_id, @regions, @region_kind, @slot_time)
		RETURNING ` + routeColumns

	args := pgx.NamedArgs{
		"journey_id":  route.JourneyID,
		"regions":     regions,
		"region_kind": route.Kind,
		"slot_time":   route.SlotTime,
	}

	result, err := scanRoute(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Route{}, fmt.Errorf("repo.RouteRepo.Save: %w", err)
	}
	return result, nil
}

func (r *pgRouteRepo) GetByJourneyID(ctx context.Context, journeyID uuid.UUID) (domain.Route, error) {
	const q = `
		SELECT ` + routeColumns + `
		FROM routes
		WHERE journey_id = @journey_id
		ORDER BY created_at DESC
		LIMIT 1`

	result, err := scanRoute(r.db.QueryRow(ctx, q, pgx.NamedArgs{"journey_id": journeyID}))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Route{}, fmt.Errorf("repo.RouteRepo.GetByJourneyID: %s: %w", journeyID, domain.ErrRouteNotFound)
		}
		return domain.Route{}, fmt.Errorf("repo.RouteRepo.GetByJourneyID: %w", err)
	}
	return result, nil
}

// scanRoute maps a single database row into a domain.Route,
// unmarshalling the jsonb region list.
func scanRoute(s scanner) (domain.Route, error) {
	var (
		route   domain.Route
		id      pgtype.UUID
		jid     pgtype.UUID
		regions []byte
		kind    string
	)

	err := s.Scan(&id, &jid, &regions, &kind, &route.SlotTime, &route.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Route{}, domain.ErrNotFound
		}
		return domain.Route{}, err
	}

	if err := json.Unmarshal(regions, &route.Regions); err != nil {
		return domain.Route{}, fmt.Errorf("unmarshal regions: %w", err)
	}

	route.ID = uuid.UUID(id.Bytes)
	route.JourneyID = uuid.UUID(jid.Bytes)
	route.Kind = domain.RegionKind(kind)
	return route, nil
}
