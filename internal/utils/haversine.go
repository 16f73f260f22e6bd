package utils

import "math"

const (
	earthRadiusKm = 6371.0

	// DefaultSpeedKmh is the assumed average urban travel speed.
	DefaultSpeedKmh = 40.0
	// MinTravelMinutes is the floor applied to every travel estimate.
	MinTravelMinutes = 5
)

// DistanceKm is the great-circle distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	lat1R := degreesToRadians(lat1)
	lat2R := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1R)*math.Cos(lat2R)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// TravelMinutes estimates driving time at DefaultSpeedKmh.
func TravelMinutes(distanceKm float64) int {
	return TravelMinutesAt(distanceKm, DefaultSpeedKmh)
}

func TravelMinutesAt(distanceKm, speedKmh float64) int {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	minutes := int(math.Floor(distanceKm / speedKmh * 60))
	if minutes < MinTravelMinutes {
		return MinTravelMinutes
	}
	return minutes
}

// TicketMinutes is the total time budget for one ticket: handling plus travel to reach it.
func TicketMinutes(minHandling, travel int) int {
	return minHandling + travel
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
