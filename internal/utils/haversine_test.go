package utils

import (
	"math"
	"testing"
)

func TestDistanceKmSymmetricAndZero(t *testing.T) {
	pairs := [][4]float64{
		{39.5696, 2.6502, 39.8533, 3.1240},
		{51.1605, 71.4704, 43.2220, 76.8512},
		{-33.8688, 151.2093, 40.7128, -74.0060},
		{0, 0, 0, 0},
	}
	for _, p := range pairs {
		ab := DistanceKm(p[0], p[1], p[2], p[3])
		ba := DistanceKm(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("distance not symmetric for %v: %f vs %f", p, ab, ba)
		}
		if d := DistanceKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Fatalf("expected zero distance for identical points, got %f", d)
		}
	}
}

func TestDistanceKmKnownValue(t *testing.T) {
	// Astana -> Almaty is roughly 970 km.
	d := DistanceKm(51.1605, 71.4704, 43.2220, 76.8512)
	if d < 950 || d > 990 {
		t.Fatalf("unexpected distance: %f", d)
	}
}

func TestTravelMinutes(t *testing.T) {
	if got := TravelMinutes(0); got != 5 {
		t.Fatalf("expected floor of 5 minutes, got %d", got)
	}
	if got := TravelMinutes(3); got != 5 {
		t.Fatalf("expected 5 minutes for 3 km, got %d", got)
	}
	if got := TravelMinutes(20); got != 30 {
		t.Fatalf("expected 30 minutes for 20 km, got %d", got)
	}
	if got := TravelMinutes(10.9); got != 16 {
		t.Fatalf("expected floored 16 minutes, got %d", got)
	}
}

func TestTravelMinutesMonotonic(t *testing.T) {
	prev := 0
	for km := 0.0; km <= 200; km += 0.37 {
		got := TravelMinutes(km)
		if got < prev {
			t.Fatalf("travel time decreased at %f km: %d < %d", km, got, prev)
		}
		if got < MinTravelMinutes {
			t.Fatalf("travel time below floor at %f km: %d", km, got)
		}
		prev = got
	}
}

func TestTicketMinutes(t *testing.T) {
	if got := TicketMinutes(20, TravelMinutes(20)); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}
