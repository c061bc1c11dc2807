package utils

import "math"

const earthRadiusMeters = 6371000

// CalculateHaversineDistance returns the great-circle distance between two
// coordinates in meters.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// OffsetMeters moves a coordinate by north/east meters. Accurate enough for
// the short hops of a simulated walk.
func OffsetMeters(lat, lon, north, east float64) (float64, float64) {
	dLat := north / earthRadiusMeters
	dLon := east / (earthRadiusMeters * math.Cos(toRadians(lat)))
	return lat + dLat*180/math.Pi, lon + dLon*180/math.Pi
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
