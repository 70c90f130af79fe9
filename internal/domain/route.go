package domain

import (
	"time"

	"github.com/google/uuid"
)

// Route is the immutable snapshot of the region sequence reserved for a
// journey, written the moment the forward saga confirms it. The cancellation
// saga replays it verbatim — same regions, same order, same slot time —
// and never re-derives the route.
type Route struct {
	ID        uuid.UUID
	JourneyID uuid.UUID
	Regions   []string
	Kind      RegionKind
	SlotTime  time.Time
	CreatedAt time.Time
}
