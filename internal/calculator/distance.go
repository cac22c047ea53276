// Package calculator derives workout metrics from a trusted trace: geodesic
// distance, elevation gain and loss, speed and pace.
//
// Every function is a pure computation over a slice of samples. Degenerate
// inputs (fewer than two samples, zero durations) yield zero values or an
// explicit "no value" result rather than errors.
package calculator

import (
	"github.com/golang/geo/s2"

	"github.com/stuartshay/workout-tracker/internal/trace"
)

const (
	// EarthRadiusMeters is the Earth's mean radius in meters
	EarthRadiusMeters = 6371000.0

	// DefaultMinStepMeters is the smallest step counted as movement. Shorter
	// steps are GPS jitter while standing still.
	DefaultMinStepMeters = 1.0
)

// DistanceBetween calculates the great-circle distance in meters between two
// points given in decimal degrees.
//
// s2 computes the central angle with the Haversine formula:
// a = sin²(Δφ/2) + cos φ1 ⋅ cos φ2 ⋅ sin²(Δλ/2)
// c = 2 ⋅ atan2( √a, √(1−a) )
// d = R ⋅ c
func DistanceBetween(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance returns the geodesic distance in meters between two samples
func Distance(a, b trace.Sample) float64 {
	return DistanceBetween(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// TotalDistance sums the distance between consecutive samples, skipping
// steps shorter than minStepMeters
func TotalDistance(samples []trace.Sample, minStepMeters float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(samples); i++ {
		if d := Distance(samples[i-1], samples[i]); d >= minStepMeters {
			total += d
		}
	}
	return total
}
