package discover

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// Coord is a latitude/longitude pair in degrees
type Coord struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance between a and b in kilometers
func Haversine(a, b Coord) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// coordOf resolves a position, preferring the profile's coordinates over the user's.
func coordOf(lat, lon, userLat, userLon *float64) (Coord, bool) {
	if lat != nil && lon != nil {
		return Coord{Lat: *lat, Lon: *lon}, true
	}
	if userLat != nil && userLon != nil {
		return Coord{Lat: *userLat, Lon: *userLon}, true
	}
	return Coord{}, false
}
