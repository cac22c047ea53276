package calculator

import "github.com/stuartshay/workout-tracker/internal/trace"

// Totals keeps running distance, ascent and descent as samples arrive, so a
// live counter does not rescan the trace. Feeding it the samples of a trace
// in order yields exactly TotalDistance, TotalAscent and TotalDescent.
//
// Totals is not safe for concurrent use.
type Totals struct {
	MinStepMeters  float64
	DistanceMeters float64
	AscentMeters   float64
	DescentMeters  float64
	Count          int

	last trace.Sample
}

// NewTotals creates running totals with the given jitter threshold
func NewTotals(minStepMeters float64) *Totals {
	return &Totals{MinStepMeters: minStepMeters}
}

// Add folds the next sample of the trace into the totals
func (t *Totals) Add(s trace.Sample) {
	if t.Count > 0 {
		if d := Distance(t.last, s); d >= t.MinStepMeters {
			t.DistanceMeters += d
		}
		diff := s.Altitude - t.last.Altitude
		if diff > 0 {
			t.AscentMeters += diff
		} else if diff < 0 {
			t.DescentMeters -= diff
		}
	}
	t.last = s
	t.Count++
}

// Reset clears the totals for a new session
func (t *Totals) Reset() {
	*t = Totals{MinStepMeters: t.MinStepMeters}
}
