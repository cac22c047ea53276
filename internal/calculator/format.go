package calculator

import (
	"fmt"
	"math"
	"time"
)

// PaceUnavailable is displayed when no pace can be computed
const PaceUnavailable = `--'--"`

// MaxPaceMinPerKM is the slowest pace FormatPace renders
const MaxPaceMinPerKM = 1e6

// Minimum distance and duration before Pace reports a value
const (
	MinPaceDistanceMeters = 10.0
	MinPaceDuration       = 5 * time.Second
)

// FormatPace renders minutes per kilometer as M'SS". Seconds are rounded to
// the nearest whole second and carry into the minutes.
func FormatPace(minPerKM float64) string {
	if math.IsNaN(minPerKM) || math.IsInf(minPerKM, 0) || minPerKM <= 0 || minPerKM > MaxPaceMinPerKM {
		return PaceUnavailable
	}

	minutes := int(minPerKM)
	seconds := int(math.Round((minPerKM - float64(minutes)) * 60))
	if seconds == 60 {
		minutes++
		seconds = 0
	}
	return fmt.Sprintf("%d'%02d\"", minutes, seconds)
}

// PaceFromSpeed converts a speed in km/h to a formatted pace
func PaceFromSpeed(speedKmh float64) string {
	if speedKmh <= 0 {
		return PaceUnavailable
	}
	return FormatPace(60 / speedKmh)
}

// Pace formats the pace for covering distanceMeters in duration. Very short
// distances or durations give PaceUnavailable.
func Pace(distanceMeters float64, duration time.Duration) string {
	if distanceMeters < MinPaceDistanceMeters || duration < MinPaceDuration {
		return PaceUnavailable
	}
	return FormatPace(duration.Minutes() / (distanceMeters / 1000))
}

// FormatDuration renders a duration as HH:MM:SS, truncating fractions
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total/60%60, total%60)
}
