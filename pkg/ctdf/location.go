package ctdf

import "math"

const earthRadiusMeters = 6371000.0

// Distance returns the great circle distance in meters between two positions
func (p TrainPosition) Distance(other TrainPosition) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Interpolate returns the point a fraction of the way from p to other.
// Latitude and longitude are interpolated independently.
func (p TrainPosition) Interpolate(other TrainPosition, fraction float64) TrainPosition {
	return TrainPosition{
		Lat: p.Lat + (other.Lat-p.Lat)*fraction,
		Lng: p.Lng + (other.Lng-p.Lng)*fraction,
	}
}
