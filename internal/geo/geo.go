package geo

import "math"

const (
	EarthRadiusKm = 6371.0
	// AverageSpeedKmh is the assumed delivery speed used for travel estimates.
	AverageSpeedKmh = 40.0
)

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) DistanceTo(other Point) float64 {
	return HaversineKm(p.Lat, p.Lng, other.Lat, other.Lng)
}

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// EstimatedMinutes converts a distance into whole minutes at AverageSpeedKmh, truncating.
func EstimatedMinutes(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(distanceKm / AverageSpeedKmh * 60)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
