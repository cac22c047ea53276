package calculator

import "github.com/stuartshay/workout-tracker/internal/trace"

// TotalAscent sums the positive altitude changes between consecutive samples.
// Altitude is not smoothed, so barometric noise counts as climbing.
func TotalAscent(samples []trace.Sample) float64 {
	var ascent float64
	for i := 1; i < len(samples); i++ {
		if diff := samples[i].Altitude - samples[i-1].Altitude; diff > 0 {
			ascent += diff
		}
	}
	return ascent
}

// TotalDescent sums the magnitude of negative altitude changes between
// consecutive samples
func TotalDescent(samples []trace.Sample) float64 {
	var descent float64
	for i := 1; i < len(samples); i++ {
		if diff := samples[i].Altitude - samples[i-1].Altitude; diff < 0 {
			descent -= diff
		}
	}
	return descent
}
