package geospatial

import "math"

const (
	earthRadiusKm   = 6371.0
	metersPerDegLat = 111320.0
)

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Snap rounds a point onto a grid whose cells are roughly cellMeters wide.
// Nearby readings snap to the same cell, which makes the result usable as a
// cache key. Longitude cells use the latitude row's width so they stay square.
func Snap(lat, lon, cellMeters float64) (float64, float64) {
	if cellMeters <= 0 {
		return lat, lon
	}
	latStep := cellMeters / metersPerDegLat
	slat := math.Max(-90, math.Min(90, math.Round(lat/latStep)*latStep))

	cos := math.Cos(toRad(slat))
	if cos < 1e-6 {
		return slat, 0
	}
	lonStep := cellMeters / (metersPerDegLat * cos)
	return slat, math.Round(lon/lonStep) * lonStep
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
