package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/traffic-service/internal/domain"
	"github.com/transitlab/traffic-service/internal/repo"
)

// ContinentResolver supplies the continent tag for a city when the caller
// did not. Resolution failure is never fatal: the slot is tagged Unknown.
type ContinentResolver interface {
	ContinentForCity(city string) (string, bool)
}

// Saga orchestrates the multi-step capacity reservation as one logical
// transaction with explicit compensation. Each forward step commits
// independently (its effect is durable immediately); a failure part-way
// releases every already-committed step rather than rolling anything back.
type Saga struct {
	reservation *Reservation
	slots       SlotStore
	journeys    repo.JourneyRepo
	routes      repo.RouteRepo
	geo         ContinentResolver
	log         *slog.Logger
}

// NewSaga constructs the orchestrator.
func NewSaga(reservation *Reservation, slots SlotStore, journeys repo.JourneyRepo, routes repo.RouteRepo, geo ContinentResolver, log *slog.Logger) *Saga {
	return &Saga{
		reservation: reservation,
		slots:       slots,
		journeys:    journeys,
		routes:      routes,
		geo:         geo,
		log:         log,
	}
}

// ReserveInput carries everything the forward saga needs.
type ReserveInput struct {
	JourneyID uuid.UUID
	// Steps are attempted strictly in order; one per region on the route.
	Steps []domain.ReservationStep
	Kind  domain.RegionKind
	// Route is the full ordered region sequence, persisted verbatim on success.
	Route    []string
	SlotTime time.Time
	// Continents spanned by the route's origin and destination. When a
	// country route spans more than one, the continent tags are replicated
	// onto every country slot after the saga succeeds.
	Continents []string
}

// Reserve drives the forward reservation saga. It returns the journey's
// terminal status for this booking: StatusConfirmed when every step
// committed, StatusRejected when any step failed and the committed steps
// were compensated. A non-nil error means the journey's state could not be
// settled (e.g. the journey row is missing) and the outcome is undefined.
func (s *Saga) Reserve(ctx context.Context, in ReserveInput) (domain.JourneyStatus, error) {
	slotTime := domain.SlotBucket(in.SlotTime)

	var committed []domain.ReservationStep
	var stepErr error
	for i, step := range in.Steps {
		if step.Kind == domain.RegionCity && step.Continent == "" {
			step.Continent = s.resolveContinent(ctx, step.Region)
		}
		if err := s.reservation.ReserveStep(ctx, step, slotTime); err != nil {
			s.log.WarnContext(ctx, "saga step failed, compensating",
				"journey_id", in.JourneyID, "step", i+1, "region", step.Region, "error", err)
			stepErr = err
			break
		}
		committed = append(committed, step)
	}

	if stepErr != nil {
		s.compensate(ctx, in.JourneyID, committed, slotTime)
		if err := s.journeys.UpdateStatus(ctx, in.JourneyID, domain.StatusRejected, domain.StatusPending); err != nil {
			return "", fmt.Errorf("service.Saga.Reserve: reject journey: %w", err)
		}
		return domain.StatusRejected, nil
	}

	// Snapshot the route before confirming so a confirmed journey always has
	// one for the cancellation saga to replay.
	route := domain.Route{
		JourneyID: in.JourneyID,
		Regions:   in.Route,
		Kind:      in.Kind,
		SlotTime:  slotTime,
	}
	if _, err := s.routes.Save(ctx, route); err != nil {
		s.log.ErrorContext(ctx, "saga could not persist route snapshot, compensating",
			"journey_id", in.JourneyID, "error", err)
		s.compensate(ctx, in.JourneyID, committed, slotTime)
		if err := s.journeys.UpdateStatus(ctx, in.JourneyID, domain.StatusRejected, domain.StatusPending); err != nil {
			return "", fmt.Errorf("service.Saga.Reserve: reject journey: %w", err)
		}
		return domain.StatusRejected, nil
	}

	if err := s.journeys.UpdateStatus(ctx, in.JourneyID, domain.StatusConfirmed, domain.StatusPending); err != nil {
		s.compensate(ctx, in.JourneyID, committed, slotTime)
		return "", fmt.Errorf("service.Saga.Reserve: confirm journey: %w", err)
	}

	// Cross-continent replication: bookkeeping union of continent tags on
	// each country slot, on overall success only. Failure here does not
	// unsettle the saga: the tags are advisory, capacity is untouched.
	if in.Kind == domain.RegionCountry && len(distinct(in.Continents)) > 1 {
		if err := s.slots.UnionContinents(ctx, in.Route, in.Kind, slotTime, in.Continents); err != nil {
			s.log.WarnContext(ctx, "continent replication failed",
				"journey_id", in.JourneyID, "error", err)
		}
	}

	s.log.InfoContext(ctx, "saga reservation confirmed",
		"journey_id", in.JourneyID, "route", in.Route)
	return domain.StatusConfirmed, nil
}

// Cancel drives the release saga for a previously confirmed journey: it
// replays the persisted route snapshot, releasing every region in one
// transaction, then marks the journey canceled.
//
// Failure to release leaves the journey confirmed. There is no further
// compensation on this path — it is an operational incident requiring
// out-of-band reconciliation, logged at Error level, never retried here.
func (s *Saga) Cancel(ctx context.Context, journeyID uuid.UUID) (domain.JourneyStatus, error) {
	journey, err := s.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return "", fmt.Errorf("service.Saga.Cancel: %w", err)
	}
	if !journey.Status.CanTransitionTo(domain.StatusCanceled) {
		return "", fmt.Errorf("service.Saga.Cancel: journey %s is %s: %w",
			journeyID, journey.Status, domain.ErrInvalidTransition)
	}

	route, err := s.routes.GetByJourneyID(ctx, journeyID)
	if err != nil {
		// Nothing to release. Reported, never retried.
		return "", fmt.Errorf("service.Saga.Cancel: %w", err)
	}

	if err := s.slots.ReleaseRoute(ctx, route.Regions, route.Kind, route.SlotTime); err != nil {
		s.log.ErrorContext(ctx, "cancellation release failed, journey remains confirmed; manual reconciliation required",
			"journey_id", journeyID, "route", route.Regions, "error", err)
		return "", fmt.Errorf("service.Saga.Cancel: release route: %w", err)
	}

	if err := s.journeys.UpdateStatus(ctx, journeyID, domain.StatusCanceled, domain.StatusConfirmed); err != nil {
		return "", fmt.Errorf("service.Saga.Cancel: %w", err)
	}

	s.log.InfoContext(ctx, "journey canceled, route released",
		"journey_id", journeyID, "route", route.Regions)
	return domain.StatusCanceled, nil
}

// compensate releases every committed step, most recent first, each in its
// own transaction. Individual failures are logged as capacity leaks and do
// not stop the remaining releases.
func (s *Saga) compensate(ctx context.Context, journeyID uuid.UUID, committed []domain.ReservationStep, slotTime time.Time) {
	for i := len(committed) - 1; i >= 0; i-- {
		step := committed[i]
		if err := s.reservation.ReleaseStep(ctx, step, slotTime); err != nil {
			s.log.ErrorContext(ctx, "compensation failed, capacity leaked; operator attention required",
				"journey_id", journeyID, "region", step.Region, "slot_time", slotTime, "error", err)
		}
	}
}

// resolveContinent asks the geo resolver for a city's continent,
// falling back to Unknown when resolution fails.
func (s *Saga) resolveContinent(ctx context.Context, city string) string {
	if continent, ok := s.geo.ContinentForCity(city); ok {
		return continent
	}
	s.log.DebugContext(ctx, "continent resolution failed, tagging Unknown", "city", city)
	return domain.ContinentUnknown
}

// distinct returns the unique non-empty values in vals, order preserved.
func distinct(vals []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range vals {
		if v != "" && !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
