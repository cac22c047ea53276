// Package metrics composes the calculator functions into the live metrics
// set shown while a workout is in progress.
package metrics

import (
	"fmt"
	"time"

	"github.com/stuartshay/workout-tracker/internal/calculator"
	"github.com/stuartshay/workout-tracker/internal/trace"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

// SpeedUnavailable is displayed for cycling when no speed estimate exists
const SpeedUnavailable = "--.-"

// Snapshot is the metrics set derived from a trusted trace at one instant.
// It holds no state of its own and can be recomputed at any time.
type Snapshot struct {
	SessionID       string        `json:"session_id,omitempty"`
	WorkoutType     workout.Type  `json:"workout_type"`
	DistanceMeters  float64       `json:"distance_m"`
	AscentMeters    float64       `json:"ascent_m"`
	DescentMeters   float64       `json:"descent_m"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	InstantSpeedKmh *float64      `json:"instant_speed_kmh,omitempty"`
	AverageSpeedKmh float64       `json:"average_speed_kmh"`
	MaxSpeedKmh     float64       `json:"max_speed_kmh"`
	SampleCount     int           `json:"sample_count"`
	DisplaySpeed    string        `json:"display_speed"`
	ElapsedDisplay  string        `json:"elapsed_display"`
}

// Compute derives a snapshot from the full trace. It is a pure function of
// its inputs; calling it every tick never accumulates drift.
func Compute(samples []trace.Sample, elapsed time.Duration, t workout.Type) Snapshot {
	snap := Snapshot{
		WorkoutType:     t,
		DistanceMeters:  calculator.TotalDistance(samples, calculator.DefaultMinStepMeters),
		AscentMeters:    calculator.TotalAscent(samples),
		DescentMeters:   calculator.TotalDescent(samples),
		Elapsed:         elapsed,
		AverageSpeedKmh: calculator.AverageSpeedKmh(samples),
		MaxSpeedKmh:     calculator.MaxSpeedKmh(samples),
		SampleCount:     len(samples),
		ElapsedDisplay:  calculator.FormatDuration(elapsed),
	}

	speed, ok := calculator.InstantSpeedKmh(samples, calculator.DefaultSpeedWindow)
	if ok {
		snap.InstantSpeedKmh = &speed
	}
	snap.DisplaySpeed = FormatSpeed(speed, ok, t)

	return snap
}

// DisplaySpeed formats the current speed of a trace for the workout type
func DisplaySpeed(samples []trace.Sample, t workout.Type) string {
	speed, ok := calculator.InstantSpeedKmh(samples, calculator.DefaultSpeedWindow)
	return FormatSpeed(speed, ok, t)
}

// FormatSpeed renders a speed estimate: as pace for running, as km/h with
// one decimal for cycling. A missing estimate gives the type's sentinel.
func FormatSpeed(speedKmh float64, ok bool, t workout.Type) string {
	switch t {
	case workout.Cycling:
		if !ok {
			return SpeedUnavailable
		}
		return fmt.Sprintf("%.1f", speedKmh)
	default:
		if !ok {
			return calculator.PaceUnavailable
		}
		return calculator.PaceFromSpeed(speedKmh)
	}
}
