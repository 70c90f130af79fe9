// Package geo resolves coordinates and city names to country and continent
// information. The default implementation is a table lookup over an injected
// gazetteer — immutable after construction, safe for concurrent use.
package geo

import (
	"math"
	"strings"
)

// Place is one resolved location: the city record nearest the queried point.
type Place struct {
	City        string
	Country     string
	CountryCode string
	Continent   string
	Lat         float64
	Lon         float64
}

// Resolver maps coordinates and city names to geographic info.
type Resolver interface {
	// Resolve returns the place nearest (lat, lon), or false when no known
	// place is close enough to give a meaningful answer.
	Resolve(lat, lon float64) (Place, bool)

	// ContinentForCity returns the continent a known city lies on.
	ContinentForCity(city string) (string, bool)
}

// maxResolveDistanceKm bounds how far a query point may be from the nearest
// known city before resolution is considered failed.
const maxResolveDistanceKm = 500.0

// Gazetteer is the table-backed Resolver. It also serves the route planner
// with per-country city lists and per-continent country lists.
type Gazetteer struct {
	places           []Place
	byCity           map[string]Place
	citiesByCountry  map[string][]string
	continentByCode  map[string]string
	codesByContinent map[string][]string
}

// NewGazetteer builds the lookup indexes over the given places.
// The slice is not retained mutable anywhere; a Gazetteer never changes
// after this returns.
func NewGazetteer(places []Place) *Gazetteer {
	g := &Gazetteer{
		places:           places,
		byCity:           make(map[string]Place, len(places)),
		citiesByCountry:  map[string][]string{},
		continentByCode:  map[string]string{},
		codesByContinent: map[string][]string{},
	}
	for _, p := range places {
		g.byCity[strings.ToLower(p.City)] = p
		g.citiesByCountry[p.CountryCode] = append(g.citiesByCountry[p.CountryCode], p.City)
		if _, ok := g.continentByCode[p.CountryCode]; !ok {
			g.continentByCode[p.CountryCode] = p.Continent
			g.codesByContinent[p.Continent] = append(g.codesByContinent[p.Continent], p.CountryCode)
		}
	}
	return g
}

func (g *Gazetteer) Resolve(lat, lon float64) (Place, bool) {
	var (
		best     Place
		bestDist = math.Inf(1)
	)
	for _, p := range g.places {
		if d := haversineKm(lat, lon, p.Lat, p.Lon); d < bestDist {
			best, bestDist = p, d
		}
	}
	if bestDist > maxResolveDistanceKm {
		return Place{}, false
	}
	return best, true
}

func (g *Gazetteer) ContinentForCity(city string) (string, bool) {
	p, ok := g.byCity[strings.ToLower(city)]
	if !ok {
		return "", false
	}
	return p.Continent, true
}

// CitiesInCountry returns the known cities for a country code,
// in gazetteer order.
func (g *Gazetteer) CitiesInCountry(code string) []string {
	return g.citiesByCountry[code]
}

// CountriesOnContinents returns the country codes on any of the given
// continents, without duplicates.
func (g *Gazetteer) CountriesOnContinents(continents ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, continent := range continents {
		for _, code := range g.codesByContinent[continent] {
			if !seen[code] {
				out = append(out, code)
				seen[code] = true
			}
		}
	}
	return out
}

// CountryCodeForCity returns the country code of a known city.
func (g *Gazetteer) CountryCodeForCity(city string) (string, bool) {
	p, ok := g.byCity[strings.ToLower(city)]
	if !ok {
		return "", false
	}
	return p.CountryCode, true
}

// ContinentForCountry returns the continent for a country code.
func (g *Gazetteer) ContinentForCountry(code string) (string, bool) {
	continent, ok := g.continentByCode[code]
	return continent, ok
}

// haversineKm is the great-circle distance between two points in kilometres.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
