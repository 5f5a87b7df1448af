package stats

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Count != 0 || s.Mean != 0 || s.Median != 0 || s.P95 != 0 || s.Max != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestSummarize(t *testing.T) {
	values := []float64{10, 0, 5, 0, 20}
	s := Summarize(values)
	if s.Count != 5 {
		t.Fatalf("count = %d, want 5", s.Count)
	}
	if !almostEqual(s.Mean, 7) {
		t.Fatalf("mean = %v, want 7", s.Mean)
	}
	if !almostEqual(s.Median, 5) {
		t.Fatalf("median = %v, want 5", s.Median)
	}
	if !almostEqual(s.Max, 20) {
		t.Fatalf("max = %v, want 20", s.Max)
	}
	// sorted: 0 0 5 10 20, index 3.8 -> 10 + 0.8*10
	if !almostEqual(s.P95, 18) {
		t.Fatalf("p95 = %v, want 18", s.P95)
	}
	if values[0] != 10 {
		t.Fatalf("input slice was reordered: %v", values)
	}
}

func TestMedianEven(t *testing.T) {
	if got := Median([]float64{4, 1, 3, 2}); !almostEqual(got, 2.5) {
		t.Fatalf("median = %v, want 2.5", got)
	}
}

func TestQuantileClamps(t *testing.T) {
	values := []float64{3, 1, 2}
	if got := Quantile(values, -1); got != 1 {
		t.Fatalf("q<0 = %v, want 1", got)
	}
	if got := Quantile(values, 2); got != 3 {
		t.Fatalf("q>1 = %v, want 3", got)
	}
}

func TestCountAbove(t *testing.T) {
	if got := CountAbove([]float64{0, 0, 1, 5}, 0); got != 2 {
		t.Fatalf("CountAbove = %d, want 2", got)
	}
}
