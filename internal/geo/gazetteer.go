package geo

// Default returns a Gazetteer over the built-in city dataset.
// Good enough for routing and continent tagging; swap in a fuller dataset
// via NewGazetteer when accuracy matters.
func Default() *Gazetteer {
	return NewGazetteer(defaultPlaces)
}

var defaultPlaces = []Place{
	{City: "New York", Country: "United States", CountryCode: "US", Continent: "North America", Lat: 40.7128, Lon: -74.0060},
	{City: "Los Angeles", Country: "United States", CountryCode: "US", Continent: "North America", Lat: 34.0522, Lon: -118.2437},
	{City: "Chicago", Country: "United States", CountryCode: "US", Continent: "North America", Lat: 41.8781, Lon: -87.6298},
	{City: "Houston", Country: "United States", CountryCode: "US", Continent: "North America", Lat: 29.7604, Lon: -95.3698},
	{City: "Toronto", Country: "Canada", CountryCode: "CA", Continent: "North America", Lat: 43.6532, Lon: -79.3832},
	{City: "Vancouver", Country: "Canada", CountryCode: "CA", Continent: "North America", Lat: 49.2827, Lon: -123.1207},
	{City: "Mexico City", Country: "Mexico", CountryCode: "MX", Continent: "North America", Lat: 19.4326, Lon: -99.1332},
	{City: "London", Country: "United Kingdom", CountryCode: "GB", Continent: "Europe", Lat: 51.5074, Lon: -0.1278},
	{City: "Manchester", Country: "United Kingdom", CountryCode: "GB", Continent: "Europe", Lat: 53.4808, Lon: -2.2426},
	{City: "Paris", Country: "France", CountryCode: "FR", Continent: "Europe", Lat: 48.8566, Lon: 2.3522},
	{City: "Lyon", Country: "France", CountryCode: "FR", Continent: "Europe", Lat: 45.7640, Lon: 4.8357},
	{City: "Marseille", Country: "France", CountryCode: "FR", Continent: "Europe", Lat: 43.2965, Lon: 5.3698},
	{City: "Berlin", Country: "Germany", CountryCode: "DE", Continent: "Europe", Lat: 52.5200, Lon: 13.4050},
	{City: "Munich", Country: "Germany", CountryCode: "DE", Continent: "Europe", Lat: 48.1351, Lon: 11.5820},
	{City: "Madrid", Country: "Spain", CountryCode: "ES", Continent: "Europe", Lat: 40.4168, Lon: -3.7038},
	{City: "Barcelona", Country: "Spain", CountryCode: "ES", Continent: "Europe", Lat: 41.3874, Lon: 2.1686},
	{City: "Rome", Country: "Italy", CountryCode: "IT", Continent: "Europe", Lat: 41.9028, Lon: 12.4964},
	{City: "Milan", Country: "Italy", CountryCode: "IT", Continent: "Europe", Lat: 45.4642, Lon: 9.1900},
	{City: "Tokyo", Country: "Japan", CountryCode: "JP", Continent: "Asia", Lat: 35.6762, Lon: 139.6503},
	{City: "Osaka", Country: "Japan", CountryCode: "JP", Continent: "Asia", Lat: 34.6937, Lon: 135.5023},
	{City: "Beijing", Country: "China", CountryCode: "CN", Continent: "Asia", Lat: 39.9042, Lon: 116.4074},
	{City: "Shanghai", Country: "China", CountryCode: "CN", Continent: "Asia", Lat: 31.2304, Lon: 121.4737},
	{City: "Delhi", Country: "India", CountryCode: "IN", Continent: "Asia", Lat: 28.7041, Lon: 77.1025},
	{City: "Mumbai", Country: "India", CountryCode: "IN", Continent: "Asia", Lat: 19.0760, Lon: 72.8777},
	{City: "Singapore", Country: "Singapore", CountryCode: "SG", Continent: "Asia", Lat: 1.3521, Lon: 103.8198},
	{City: "São Paulo", Country: "Brazil", CountryCode: "BR", Continent: "South America", Lat: -23.5505, Lon: -46.6333},
	{City: "Rio de Janeiro", Country: "Brazil", CountryCode: "BR", Continent: "South America", Lat: -22.9068, Lon: -43.1729},
	{City: "Buenos Aires", Country: "Argentina", CountryCode: "AR", Continent: "South America", Lat: -34.6037, Lon: -58.3816},
	{City: "Cairo", Country: "Egypt", CountryCode: "EG", Continent: "Africa", Lat: 30.0444, Lon: 31.2357},
	{City: "Lagos", Country: "Nigeria", CountryCode: "NG", Continent: "Africa", Lat: 6.5244, Lon: 3.3792},
	{City: "Johannesburg", Country: "South Africa", CountryCode: "ZA", Continent: "Africa", Lat: -26.2041, Lon: 28.0473},
	{City: "Cape Town", Country: "South Africa", CountryCode: "ZA", Continent: "Africa", Lat: -33.9249, Lon: 18.4241},
	{City: "Sydney", Country: "Australia", CountryCode: "AU", Continent: "Oceania", Lat: -33.8688, Lon: 151.2093},
	{City: "Melbourne", Country: "Australia", CountryCode: "AU", Continent: "Oceania", Lat: -37.8136, Lon: 144.9631},
}
