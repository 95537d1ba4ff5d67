package domain

import "fmt"

// Coordinates is a single device position reading (WGS 84).
type Coordinates struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

// Numeric formats the reading as "lat, lon" with five decimals (~1 m).
func (c Coordinates) Numeric() string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

// Valid reports whether the reading lies inside the WGS 84 range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180 &&
		c.AccuracyMeters >= 0
}
