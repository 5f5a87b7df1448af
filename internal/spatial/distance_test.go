package spatial

import (
	"math"
	"testing"
)

func TestDistanceKmOneDegreeOfLatitude(t *testing.T) {
	got := DistanceKm(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("DistanceKm = %v, want %v", got, want)
	}
}

func TestDistanceKmSamePoint(t *testing.T) {
	p := Point{Lat: 48.8566, Lon: 2.3522}
	if got := DistanceKm(p, p); got != 0 {
		t.Fatalf("DistanceKm(p, p) = %v, want 0", got)
	}
}

func TestPathLengthKm(t *testing.T) {
	path := []Point{{0, 0}, {1, 0}, {2, 0}}
	got := PathLengthKm(path)
	want := 2 * EarthRadiusKm * math.Pi / 180
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("PathLengthKm = %v, want %v", got, want)
	}
	if PathLengthKm(path[:1]) != 0 {
		t.Fatal("single point path should have zero length")
	}
}
