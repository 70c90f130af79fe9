package domain

import (
	"time"

	"github.com/google/uuid"
)

// RegionKind is whether a reservation unit is a city or a country.
type RegionKind string

const (
	RegionCity    RegionKind = "city"
	RegionCountry RegionKind = "country"
)

// ContinentUnknown is the continent tag assigned when geo resolution fails
// or no continent was supplied for a city slot.
const ContinentUnknown = "Unknown"

// Slot is a capacity counter for one region in one time window.
// Identity is (RegionIdentifier, SlotTime); Capacity is assigned once at
// creation by the capacity provider and never changes. Invariant:
// 0 <= Reserved <= Capacity, enforced by the reserve/release operations.
//
// Slot rows are shared mutable state across concurrent sagas; every mutation
// must happen while the row's exclusive lock is held.
type Slot struct {
	ID               uuid.UUID
	RegionIdentifier string
	RegionKind       RegionKind
	SlotTime         time.Time
	Capacity         int
	Reserved         int
	Continent        string
}

// Available returns the remaining free capacity on the slot.
func (s Slot) Available() int {
	return s.Capacity - s.Reserved
}

// ReservationStep is the saga-internal unit of work: one region to reserve
// at one slot time. Steps are transient — they exist only for the duration
// of a saga execution and are never persisted independently.
type ReservationStep struct {
	Region    string
	Kind      RegionKind
	Continent string // empty means "resolve via the geo resolver" for city kind
}

// SlotBucket truncates a scheduled time to the hour window its slot keys on.
func SlotBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
