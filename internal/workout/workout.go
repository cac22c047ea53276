// Package workout defines the workout types a session can record and the
// summary record that outlives a finished session.
package workout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stuartshay/workout-tracker/internal/calculator"
)

// Type is the kind of workout being recorded
type Type string

// Supported workout types
const (
	Running Type = "running"
	Cycling Type = "cycling"
)

// ErrUnknownType is returned by ParseType for unsupported workout types
var ErrUnknownType = errors.New("unknown workout type")

// Types lists every supported workout type
func Types() []Type {
	return []Type{Running, Cycling}
}

// ParseType converts a case-insensitive name into a Type
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Running:
		return Running, nil
	case Cycling:
		return Cycling, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// ActivityProfile names the location sensor profile a feed should use.
// Cycling uses the navigation profile, which tolerates higher speeds.
func (t Type) ActivityProfile() string {
	if t == Cycling {
		return "automotive_navigation"
	}
	return "fitness"
}

// DistanceUnit is the unit distances are displayed in
func (t Type) DistanceUnit() string {
	return "km"
}

// SpeedUnit is the unit the live speed is displayed in: pace for running,
// speed for cycling
func (t Type) SpeedUnit() string {
	if t == Cycling {
		return "km/h"
	}
	return "min/km"
}

// Record is the summary persisted once a session ends
type Record struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Type            Type      `json:"type"`
	DistanceMeters  float64   `json:"distance_m"`
	DurationSeconds float64   `json:"duration_s"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Calories        int       `json:"calories"`
}

// Duration returns the recorded duration
func (r Record) Duration() time.Duration {
	return time.Duration(r.DurationSeconds * float64(time.Second))
}

// FormattedDistance renders the distance in kilometers, e.g. "5.02 km"
func (r Record) FormattedDistance() string {
	return fmt.Sprintf("%.2f km", r.DistanceMeters/1000)
}

// FormattedDuration renders the duration as HH:MM:SS
func (r Record) FormattedDuration() string {
	return calculator.FormatDuration(r.Duration())
}

// AveragePace is the whole-workout pace, or the unavailable sentinel when
// no distance was covered
func (r Record) AveragePace() string {
	if r.DistanceMeters <= 0 {
		return calculator.PaceUnavailable
	}
	return calculator.FormatPace((r.DurationSeconds / 60) / (r.DistanceMeters / 1000))
}
