// Package planner produces the ordered region sequence a journey passes
// through. The default planner is randomized and deliberately unsophisticated:
// route quality is not this system's concern, only that origin comes first,
// destination last, and the sequence is stable once handed to the saga.
package planner

import (
	"math/rand"

	"github.com/transitlab/traffic-service/internal/domain"
)

// Index is the gazetteer view the planner draws intermediate stops from.
// geo.Gazetteer implements it.
type Index interface {
	CitiesInCountry(code string) []string
	CountryCodeForCity(city string) (string, bool)
	CountriesOnContinents(continents ...string) []string
	ContinentForCountry(code string) (string, bool)
}

// Planner plans a route between two regions of the same kind.
// Origin is always the first element of the result, destination the last.
type Planner interface {
	Plan(origin, destination string, kind domain.RegionKind) []string
}

// Random plans routes by shuffling candidate intermediate regions and
// keeping a random number of them, at most MaxStops.
type Random struct {
	index    Index
	maxStops int
}

// NewRandom constructs the randomized planner.
func NewRandom(index Index, maxStops int) *Random {
	if maxStops < 0 {
		maxStops = 0
	}
	return &Random{index: index, maxStops: maxStops}
}

func (p *Random) Plan(origin, destination string, kind domain.RegionKind) []string {
	if origin == destination {
		return []string{origin}
	}

	var candidates []string
	switch kind {
	case domain.RegionCity:
		// Same-country routing: intermediates are other cities in the
		// origin's country.
		if code, ok := p.index.CountryCodeForCity(origin); ok {
			candidates = p.index.CitiesInCountry(code)
		}
	case domain.RegionCountry:
		// Cross-country routing: intermediates come from the continents of
		// either endpoint.
		var continents []string
		if c, ok := p.index.ContinentForCountry(origin); ok {
			continents = append(continents, c)
		}
		if c, ok := p.index.ContinentForCountry(destination); ok {
			continents = append(continents, c)
		}
		candidates = p.index.CountriesOnContinents(continents...)
	}

	candidates = without(candidates, origin, destination)
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	stops := rand.Intn(p.maxStops + 1)
	if stops > len(candidates) {
		stops = len(candidates)
	}

	route := make([]string, 0, stops+2)
	route = append(route, origin)
	route = append(route, candidates[:stops]...)
	route = append(route, destination)
	return route
}

// without copies vals minus the excluded elements.
func without(vals []string, excluded ...string) []string {
	var out []string
	for _, v := range vals {
		skip := false
		for _, e := range excluded {
			if v == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, v)
		}
	}
	return out
}
