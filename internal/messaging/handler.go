package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/transitlab/traffic-service/internal/domain"
	"github.com/transitlab/traffic-service/internal/geo"
	"github.com/transitlab/traffic-service/internal/planner"
	"github.com/transitlab/traffic-service/internal/repo"
	"github.com/transitlab/traffic-service/internal/service"
)

// SagaRunner is the slice of the saga service the handler drives.
type SagaRunner interface {
	Reserve(ctx context.Context, in service.ReserveInput) (domain.JourneyStatus, error)
	Cancel(ctx context.Context, journeyID uuid.UUID) (domain.JourneyStatus, error)
}

// envelope is the minimal shape every inbound event shares; the event type
// selects how the full body is decoded.
type envelope struct {
	EventType string `json:"event_type"`
}

// EventHandler decodes inbound journey events, turns bookings into routed
// reservation sagas, and publishes the approved/rejected outcome.
type EventHandler struct {
	saga      SagaRunner
	journeys  repo.JourneyRepo
	planner   planner.Planner
	geo       geo.Resolver
	publisher Publisher
	log       *slog.Logger
}

func NewEventHandler(saga SagaRunner, journeys repo.JourneyRepo, pl planner.Planner, resolver geo.Resolver, publisher Publisher, log *slog.Logger) *EventHandler {
	return &EventHandler{
		saga:      saga,
		journeys:  journeys,
		planner:   pl,
		geo:       resolver,
		publisher: publisher,
		log:       log,
	}
}

// Handle processes one raw event body. Malformed or unresolvable events are
// dropped with a log line, never retried; they return nil so the delivery is
// acknowledged. A non-nil error means the outcome is unsettled.
func (h *EventHandler) Handle(ctx context.Context, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.log.WarnContext(ctx, "dropping undecodable event", "error", err)
		return nil
	}

	switch env.EventType {
	case domain.EventJourneyBooked:
		return h.handleBooked(ctx, body)
	case domain.EventJourneyCanceled:
		return h.handleCanceled(ctx, body)
	default:
		h.log.DebugContext(ctx, "ignoring event", "event_type", env.EventType)
		return nil
	}
}

func (h *EventHandler) handleBooked(ctx context.Context, body []byte) error {
	var event domain.JourneyBookedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.WarnContext(ctx, "dropping undecodable booking event", "error", err)
		return nil
	}
	if err := event.Validate(); err != nil {
		h.log.WarnContext(ctx, "dropping booking event with missing coordinates",
			"journey_id", event.JourneyID)
		return nil
	}

	journey, err := h.journeys.Create(ctx, domain.Journey{
		ID:             event.JourneyID,
		UserID:         event.UserID,
		OriginLat:      *event.OriginLat,
		OriginLon:      *event.OriginLon,
		DestinationLat: *event.DestinationLat,
		DestinationLon: *event.DestinationLon,
		ScheduledTime:  event.ScheduledTime,
		Status:         domain.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("messaging.EventHandler.handleBooked: %w", err)
	}
	if journey.Status != domain.StatusPending {
		// Re-delivery after the saga already settled this journey.
		h.log.InfoContext(ctx, "booking already settled, skipping",
			"journey_id", journey.ID, "status", journey.Status)
		return nil
	}

	origin, ok := h.geo.Resolve(*event.OriginLat, *event.OriginLon)
	if !ok {
		h.log.WarnContext(ctx, "dropping booking event, origin unresolvable",
			"journey_id", event.JourneyID, "lat", *event.OriginLat, "lon", *event.OriginLon)
		return nil
	}
	destination, ok := h.geo.Resolve(*event.DestinationLat, *event.DestinationLon)
	if !ok {
		h.log.WarnContext(ctx, "dropping booking event, destination unresolvable",
			"journey_id", event.JourneyID, "lat", *event.DestinationLat, "lon", *event.DestinationLon)
		return nil
	}

	kind := domain.RegionCountry
	originRegion, destinationRegion := origin.CountryCode, destination.CountryCode
	if origin.CountryCode == destination.CountryCode {
		kind = domain.RegionCity
		originRegion, destinationRegion = origin.City, destination.City
	}
	route := h.planner.Plan(originRegion, destinationRegion, kind)

	steps := make([]domain.ReservationStep, len(route))
	for i, region := range route {
		steps[i] = domain.ReservationStep{Region: region, Kind: kind}
	}

	status, err := h.saga.Reserve(ctx, service.ReserveInput{
		JourneyID:  journey.ID,
		Steps:      steps,
		Kind:       kind,
		Route:      route,
		SlotTime:   event.ScheduledTime,
		Continents: []string{origin.Continent, destination.Continent},
	})
	if err != nil {
		return fmt.Errorf("messaging.EventHandler.handleBooked: %w", err)
	}

	h.publishOutcome(ctx, event, status, route)
	return nil
}

func (h *EventHandler) handleCanceled(ctx context.Context, body []byte) error {
	var event domain.JourneyCanceledEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.WarnContext(ctx, "dropping undecodable cancellation event", "error", err)
		return nil
	}

	if _, err := h.saga.Cancel(ctx, event.JourneyID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound),
			errors.Is(err, domain.ErrRouteNotFound),
			errors.Is(err, domain.ErrInvalidTransition):
			// Terminal for this delivery; retrying cannot change the answer.
			h.log.WarnContext(ctx, "dropping cancellation event",
				"journey_id", event.JourneyID, "error", err)
			return nil
		default:
			return fmt.Errorf("messaging.EventHandler.handleCanceled: %w", err)
		}
	}

	h.log.InfoContext(ctx, "journey canceled", "journey_id", event.JourneyID)
	return nil
}

// publishOutcome reports the settled saga result. The database outcome is
// authoritative; a publish failure after the retry budget is only logged.
func (h *EventHandler) publishOutcome(ctx context.Context, event domain.JourneyBookedEvent, status domain.JourneyStatus, route []string) {
	now := time.Now().UTC()
	var (
		routingKey string
		outcome    any
	)
	if status == domain.StatusConfirmed {
		routingKey = domain.EventJourneyApproved
		outcome = domain.JourneyApprovedEvent{
			EventType:     domain.EventJourneyApproved,
			JourneyID:     event.JourneyID,
			UserID:        event.UserID,
			Route:         route,
			ScheduledTime: event.ScheduledTime,
			Timestamp:     now,
		}
	} else {
		routingKey = domain.EventJourneyRejected
		outcome = domain.JourneyRejectedEvent{
			EventType:     domain.EventJourneyRejected,
			JourneyID:     event.JourneyID,
			UserID:        event.UserID,
			ScheduledTime: event.ScheduledTime,
			Timestamp:     now,
		}
	}

	if err := h.publisher.Publish(ctx, routingKey, outcome); err != nil {
		h.log.ErrorContext(ctx, "outcome publish failed, journey state stands",
			"journey_id", event.JourneyID, "event_type", routingKey, "error", err)
	}
}
