package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// ValidCoords rejects out-of-range and null-island coordinates.
func ValidCoords(lat, lon float64) bool {
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return false
	}
	return !(math.Abs(lon) < 1e-4 && math.Abs(lat) < 1e-4)
}
