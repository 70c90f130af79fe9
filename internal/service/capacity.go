// Package service contains the business logic for the traffic slot
// reservation service: the capacity provider, the single-slot reservation
// step with its bounded retry, and the saga orchestrator. No SQL lives here —
// services depend on repo interfaces, not implementations.
package service

import (
	"math/rand"

	"github.com/transitlab/traffic-service/internal/domain"
)

// CapacityProvider assigns the total capacity of a lazily created slot.
// Called exactly once per slot; the returned value is fixed for the slot's
// lifetime.
type CapacityProvider interface {
	Provision(region string, kind domain.RegionKind) int
}

// CapacityBand is an inclusive [Min, Max] range to draw capacities from.
type CapacityBand struct {
	Min int
	Max int
}

// BandedProvider draws randomized capacities from per-kind bands.
// It is the stand-in provider: cities default to 3–10, countries to 30–100.
type BandedProvider struct {
	City    CapacityBand
	Country CapacityBand
}

// NewBandedProvider constructs a BandedProvider with the given bands.
func NewBandedProvider(city, country CapacityBand) *BandedProvider {
	return &BandedProvider{City: city, Country: country}
}

// Provision returns a uniformly random capacity within the band for kind.
func (p *BandedProvider) Provision(_ string, kind domain.RegionKind) int {
	band := p.Country
	if kind == domain.RegionCity {
		band = p.City
	}
	return band.Min + rand.Intn(band.Max-band.Min+1)
}
