package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/transitlab/traffic-service/internal/domain"
)

func TestJourneyStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to domain.JourneyStatus
		allowed  bool
	}{
		{domain.StatusPending, domain.StatusConfirmed, true},
		{domain.StatusPending, domain.StatusRejected, true},
		{domain.StatusPending, domain.StatusCanceled, false},
		{domain.StatusConfirmed, domain.StatusCanceled, true},
		{domain.StatusConfirmed, domain.StatusRejected, false},
		{domain.StatusRejected, domain.StatusConfirmed, false},
		{domain.StatusCanceled, domain.StatusConfirmed, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.allowed, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestSlotBucket(t *testing.T) {
	// Minutes and seconds are dropped; the bucket is the containing hour.
	in := time.Date(2025, 7, 1, 14, 37, 12, 500, time.UTC)
	assert.Equal(t, time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC), domain.SlotBucket(in))

	// Zoned times normalize to UTC, so the same instant keys the same slot.
	west := time.FixedZone("WEST", 3600)
	zoned := time.Date(2025, 7, 1, 15, 37, 0, 0, west) // 14:37 UTC
	assert.Equal(t, time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC), domain.SlotBucket(zoned))
}

func TestSlot_Available(t *testing.T) {
	slot := domain.Slot{Capacity: 5, Reserved: 3}
	assert.Equal(t, 2, slot.Available())

	slot.Reserved = 5
	assert.Zero(t, slot.Available())
}

func TestJourneyBookedEvent_Validate(t *testing.T) {
	lat, lon := 38.72, -9.14
	event := domain.JourneyBookedEvent{
		OriginLat:      &lat,
		OriginLon:      &lon,
		DestinationLat: &lat,
		DestinationLon: &lon,
	}
	assert.NoError(t, event.Validate())

	event.DestinationLon = nil
	assert.ErrorIs(t, event.Validate(), domain.ErrValidation)
}
