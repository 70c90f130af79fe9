package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/transitlab/traffic-service/internal/domain"
)

// JourneyRepo defines the persistence operations for Journeys.
// The saga orchestrator depends on this interface, not the concrete Postgres
// implementation, which allows it to be unit-tested with a mock.
type JourneyRepo interface {
	// Create inserts a new journey in pending status and returns the
	// persisted record. Re-delivery of the same booking event is tolerated:
	// if the journey already exists the stored row is returned unchanged.
	Create(ctx context.Context, journey domain.Journey) (domain.Journey, error)

	// GetByID retrieves a single journey by its UUID primary key.
	// Returns domain.ErrNotFound if no journey with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error)

	// UpdateStatus moves the journey to status to, but only when its current
	// status is one of from. Returns domain.ErrInvalidTransition when the
	// journey exists in a different status, domain.ErrNotFound when it does
	// not exist at all.
	UpdateStatus(ctx context.Context, id uuid.UUID, to domain.JourneyStatus, from ...domain.JourneyStatus) error
}

// pgJourneyRepo is the Postgres implementation of JourneyRepo.
type pgJourneyRepo struct {
	db db
}

// NewJourneyRepo constructs a JourneyRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewJourneyRepo(db db) JourneyRepo {
	return &pgJourneyRepo{db: db}
}

const journeyColumns = `journey_id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, scheduled_time, status, created_at`

func (r *pgJourneyRepo) Create(ctx context.Context, journey domain.Journey) (domain.Journey, error) {
	const q = `
		INSERT INTO journeys (journey_id, user_id, origin_lat, origin_lon, destination_lat, destination_lon, scheduled_time, status)
		VALUES (@journey_id, @user_id, @origin_lat, @origin_lon, @destination_lat, @destination_lon, @scheduled_time, @status)
		ON CONFLICT (journey_id) DO NOTHING
		RETURNING ` + journeyColumns

	args := pgx.NamedArgs{
		"journey_id":      journey.ID,
		"user_id":         journey.UserID,
		"origin_lat":      journey.OriginLat,
		"origin_lon":      journey.OriginLon,
		"destination_lat": journey.DestinationLat,
		"destination_lon": journey.DestinationLon,
		"scheduled_time":  journey.ScheduledTime,
		"status":          domain.StatusPending,
	}

	result, err := scanJourney(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Create: %w", err)
	}

	// DO NOTHING inserted zero rows: this booking event was delivered before.
	// Return the stored journey so the handler can proceed idempotently.
	existing, err := r.GetByID(ctx, journey.ID)
	if err != nil {
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.Create: re-lookup: %w", err)
	}
	return existing, nil
}

func (r *pgJourneyRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Journey, error) {
	const q = `
		SELECT ` + journeyColumns + `
		FROM journeys
		WHERE journey_id = @journey_id`

	result, err := scanJourney(r.db.QueryRow(ctx, q, pgx.NamedArgs{"journey_id": id}))
	if err != nil {
		return domain.Journey{}, fmt.Errorf("repo.JourneyRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgJourneyRepo) UpdateStatus(ctx context.Context, id uuid.UUID, to domain.JourneyStatus, from ...domain.JourneyStatus) error {
	const q = `
		UPDATE journeys
		SET status = @to
		WHERE journey_id = @journey_id AND status = ANY(@from)`

	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{
		"to":         to,
		"journey_id": id,
		"from":       fromStrs,
	})
	if err != nil {
		return fmt.Errorf("repo.JourneyRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "no such journey" from "journey in the wrong status".
		if _, err := r.GetByID(ctx, id); errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("repo.JourneyRepo.UpdateStatus: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("repo.JourneyRepo.UpdateStatus: %s to %s: %w", id, to, domain.ErrInvalidTransition)
	}
	return nil
}

// scanJourney maps a single database row into a domain.Journey.
func scanJourney(s scanner) (domain.Journey, error) {
	var (
		j      domain.Journey
		id     pgtype.UUID
		status string
	)

	err := s.Scan(&id, &j.UserID, &j.OriginLat, &j.OriginLon, &j.DestinationLat, &j.DestinationLon, &j.ScheduledTime, &status, &j.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Journey{}, domain.ErrNotFound
		}
		return domain.Journey{}, err
	}

	j.ID = uuid.UUID(id.Bytes)
	j.Status = domain.JourneyStatus(status)
	return j, nil
}
