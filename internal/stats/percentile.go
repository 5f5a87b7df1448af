package stats

import "math"

// Percentile calculates the p-th percentile (0-100)
// Uses linear interpolation between closest ranks
func Percentile(values []float64, p float64) float64 {
	return Quantile(values, p/100.0)
}

// Quantile calculates the q-th quantile (0 <= q <= 1)
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	sorted := sortedCopy(values)
	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	// Linear interpolation
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Summary is a five-figure description of a sample
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	P95    float64
	Max    float64
}

// Summarize computes a Summary of values
func Summarize(values []float64) Summary {
	return Summary{
		Count:  len(values),
		Mean:   Mean(values),
		Median: Median(values),
		P95:    Percentile(values, 95),
		Max:    Max(values),
	}
}
