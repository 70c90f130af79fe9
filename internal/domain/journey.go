// Package domain contains the core data types for the traffic slot
// reservation service. This package has zero external dependencies beyond
// uuid and is imported by every other internal package (repo, service,
// messaging).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JourneyStatus is the lifecycle state of a journey.
// Valid transitions: pending→confirmed, pending→rejected, confirmed→canceled.
// Any other transition is rejected with ErrInvalidTransition.
type JourneyStatus string

const (
	StatusPending   JourneyStatus = "pending"
	StatusConfirmed JourneyStatus = "confirmed"
	StatusRejected  JourneyStatus = "rejected"
	StatusCanceled  JourneyStatus = "canceled"
)

// CanTransitionTo reports whether to is a valid next status from s.
func (s JourneyStatus) CanTransitionTo(to JourneyStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusRejected
	case StatusConfirmed:
		return to == StatusCanceled
	default:
		return false
	}
}

// Journey represents one booking request moving through the reservation saga.
// Journeys are created on receipt of a booking event and never deleted;
// only the saga orchestrator mutates Status.
type Journey struct {
	ID             uuid.UUID
	UserID         string
	OriginLat      float64
	OriginLon      float64
	DestinationLat float64
	DestinationLon float64
	ScheduledTime  time.Time
	Status         JourneyStatus
	CreatedAt      time.Time
}
