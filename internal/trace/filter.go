package trace

import (
	"math"
	"sync"
)

// MaxHorizontalAccuracy is the largest horizontal accuracy radius, in
// meters, a sample may report and still be trusted
const MaxHorizontalAccuracy = 15.0

// Accept reports whether a sample is accurate enough to enter a trace.
// Platforms report an unknown accuracy as a negative radius, and those
// samples are rejected along with NaN.
func Accept(s Sample) bool {
	if math.IsNaN(s.HorizontalAccuracy) || s.HorizontalAccuracy < 0 {
		return false
	}
	return s.HorizontalAccuracy <= MaxHorizontalAccuracy
}

// FilterStats counts what a Filter has done with incoming samples
type FilterStats struct {
	Accepted         int `json:"accepted"`
	RejectedAccuracy int `json:"rejected_accuracy"`
	RejectedOrder    int `json:"rejected_order"`
}

// Filter gates raw samples into a Trace.
//
// Besides the accuracy gate it refuses samples timestamped before the last
// trusted sample, which happens when a receiver resynchronizes and replays
// old fixes. Equal timestamps are kept.
type Filter struct {
	mu    sync.Mutex
	stats FilterStats
}

// NewFilter creates a filter with zeroed counters
func NewFilter() *Filter {
	return &Filter{}
}

// Ingest appends s to the trace when it passes the gate and reports whether
// it was kept. Rejections are counted, never returned as errors.
func (f *Filter) Ingest(s Sample, into *Trace) bool {
	if !Accept(s) {
		f.count(func(st *FilterStats) { st.RejectedAccuracy++ })
		return false
	}

	into.mu.Lock()
	if n := len(into.samples); n > 0 && s.Timestamp.Before(into.samples[n-1].Timestamp) {
		into.mu.Unlock()
		f.count(func(st *FilterStats) { st.RejectedOrder++ })
		return false
	}
	into.samples = append(into.samples, s)
	into.mu.Unlock()

	f.count(func(st *FilterStats) { st.Accepted++ })
	return true
}

// Stats returns a copy of the counters
func (f *Filter) Stats() FilterStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Reset zeroes the counters
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = FilterStats{}
}

func (f *Filter) count(update func(*FilterStats)) {
	f.mu.Lock()
	update(&f.stats)
	f.mu.Unlock()
}
