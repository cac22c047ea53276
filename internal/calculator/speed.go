package calculator

import (
	"math"
	"sort"
	"time"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

// DefaultSpeedWindow is how far back InstantSpeedKmh looks for its start sample
const DefaultSpeedWindow = 10 * time.Second

// metersPerSecondToKmh converts m/s to km/h
const metersPerSecondToKmh = 3.6

// InstantSpeedKmh estimates the current speed from the earliest sample inside
// the window ending at the latest sample. The boolean is false when there is
// no usable estimate: fewer than two samples, nothing inside the window, or a
// non-positive distance or duration.
func InstantSpeedKmh(samples []trace.Sample, window time.Duration) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}

	latest := samples[len(samples)-1]
	cutoff := latest.Timestamp.Add(-window)

	// samples are in non-decreasing time order
	i := sort.Search(len(samples), func(i int) bool {
		return !samples[i].Timestamp.Before(cutoff)
	})
	if i == len(samples) {
		return 0, false
	}
	start := samples[i]

	distance := Distance(start, latest)
	duration := latest.Timestamp.Sub(start.Timestamp).Seconds()
	if distance <= 0 || duration <= 0 {
		return 0, false
	}

	return (distance / 1000) / (duration / 3600), true
}

// AverageSpeedKmh is the total distance over the time between the first and
// last sample. It is 0 until two samples at least a moment apart exist.
func AverageSpeedKmh(samples []trace.Sample) float64 {
	if len(samples) < 2 {
		return 0
	}

	distanceKM := TotalDistance(samples, DefaultMinStepMeters) / 1000
	hours := samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp).Hours()
	if hours <= 0 {
		return 0
	}
	return distanceKM / hours
}

// MaxSpeedKmh returns the highest sensor-reported speed. Invalid (negative)
// readings count as zero.
func MaxSpeedKmh(samples []trace.Sample) float64 {
	var maxSpeed float64
	for _, s := range samples {
		maxSpeed = math.Max(maxSpeed, math.Max(s.Speed, 0)*metersPerSecondToKmh)
	}
	return maxSpeed
}
