package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Jakarta (-6.2, 106.816) to Bandung (-6.9175, 107.6191) ~ 115-120 km
	d := HaversineKm(-6.2, 106.816, -6.9175, 107.6191)
	if d < 100 || d > 140 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineKmSamePoint(t *testing.T) {
	if d := HaversineKm(45.1, 15.2, 45.1, 15.2); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestPathKm(t *testing.T) {
	if d := PathKm(nil); d != 0 {
		t.Fatalf("empty path should be zero, got %v", d)
	}
	if d := PathKm([][2]float64{{1, 1}}); d != 0 {
		t.Fatalf("single point path should be zero, got %v", d)
	}

	path := [][2]float64{{0, 0}, {0, 1}, {0, 2}}
	want := HaversineKm(0, 0, 0, 1) + HaversineKm(0, 1, 0, 2)
	if d := PathKm(path); d != want {
		t.Fatalf("unexpected path distance: %v want %v", d, want)
	}
	// one degree of longitude on the equator is ~111 km
	if d := PathKm(path); d < 220 || d > 225 {
		t.Fatalf("unexpected path distance: %v", d)
	}
}
