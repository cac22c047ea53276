// Package trace holds raw location samples and the accuracy-gated trusted
// trace that every workout metric is computed from.
package trace

import (
	"sync"
	"time"
)

// Sample is a single location fix delivered by a sensor feed
type Sample struct {
	Timestamp          time.Time `json:"timestamp"`
	Latitude           float64   `json:"lat"`
	Longitude          float64   `json:"lon"`
	Altitude           float64   `json:"altitude"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	// Speed in meters per second; negative means the sensor had no valid value
	Speed float64 `json:"speed"`
}

// Trace is the append-only, chronologically ordered sequence of trusted
// samples owned by one workout session.
//
// A single writer appends while any number of readers take views with
// Samples. Appends never modify elements already handed out, and Reset
// drops the backing array instead of truncating it, so a view taken before
// a reset never observes samples of the next session.
type Trace struct {
	mu      sync.RWMutex
	samples []Sample
}

// NewTrace creates an empty trace
func NewTrace() *Trace {
	return &Trace{}
}

// Append adds a sample to the end of the trace
func (t *Trace) Append(s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = append(t.samples, s)
}

// Samples returns a read-only view of the trace at this instant
func (t *Trace) Samples() []Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := len(t.samples)
	return t.samples[:n:n]
}

// Len returns the number of trusted samples
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.samples)
}

// Last returns the most recent sample, if any
func (t *Trace) Last() (Sample, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.samples) == 0 {
		return Sample{}, false
	}
	return t.samples[len(t.samples)-1], true
}

// Reset clears the trace at session start
func (t *Trace) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = nil
}
