package geo

import (
	"math"
	"testing"
)

func TestHaversineZero(t *testing.T) {
	if d := HaversineKm(37.98, 23.72, 37.98, 23.72); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Athens to Thessaloniki, roughly 300 km great-circle.
	d := HaversineKm(37.9838, 23.7275, 40.6401, 22.9444)
	if math.Abs(d-302) > 5 {
		t.Fatalf("Athens-Thessaloniki distance %f km, want ~302", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	a := HaversineKm(37.98, 23.72, 40.64, 22.94)
	b := HaversineKm(40.64, 22.94, 37.98, 23.72)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", a, b)
	}
}
