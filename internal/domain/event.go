package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants double as AMQP routing keys.
const (
	EventJourneyBooked   = "journey.booked"
	EventJourneyCanceled = "journey.canceled"
	EventJourneyApproved = "journey.approved"
	EventJourneyRejected = "journey.rejected"
)

// JourneyBookedEvent is the inbound booking request.
// Coordinates are pointers so a missing field can be told apart from 0.0;
// an event with any coordinate absent is dropped, not retried.
type JourneyBookedEvent struct {
	EventType      string    `json:"event_type"`
	JourneyID      uuid.UUID `json:"journey_id"`
	UserID         string    `json:"user_id"`
	OriginLat      *float64  `json:"origin_lat"`
	OriginLon      *float64  `json:"origin_lon"`
	DestinationLat *float64  `json:"destination_lat"`
	DestinationLon *float64  `json:"destination_lon"`
	ScheduledTime  time.Time `json:"scheduled_time"`
	Timestamp      time.Time `json:"timestamp"`
}

// Validate checks that all four coordinates are present.
func (e JourneyBookedEvent) Validate() error {
	if e.OriginLat == nil || e.OriginLon == nil || e.DestinationLat == nil || e.DestinationLon == nil {
		return ErrValidation
	}
	return nil
}

// JourneyCanceledEvent is the inbound cancellation request for a previously
// confirmed journey.
type JourneyCanceledEvent struct {
	EventType     string    `json:"event_type"`
	JourneyID     uuid.UUID `json:"journey_id"`
	UserID        string    `json:"user_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Timestamp     time.Time `json:"timestamp"`
}

// JourneyApprovedEvent is published when the forward saga confirms a journey.
// Route carries the persisted region sequence.
type JourneyApprovedEvent struct {
	EventType     string    `json:"event_type"`
	JourneyID     uuid.UUID `json:"journey_id"`
	UserID        string    `json:"user_id"`
	Route         []string  `json:"route"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Timestamp     time.Time `json:"timestamp"`
}

// JourneyRejectedEvent is published when the forward saga compensates and
// rejects a journey. It carries no route.
type JourneyRejectedEvent struct {
	EventType     string    `json:"event_type"`
	JourneyID     uuid.UUID `json:"journey_id"`
	UserID        string    `json:"user_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Timestamp     time.Time `json:"timestamp"`
}
