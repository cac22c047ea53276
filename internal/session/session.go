// Package session owns live workout sessions: each session has its own
// trusted trace, fed by one sensor producer and read by any number of
// snapshot consumers.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/stuartshay/workout-tracker/internal/calculator"
	"github.com/stuartshay/workout-tracker/internal/metrics"
	"github.com/stuartshay/workout-tracker/internal/projection"
	"github.com/stuartshay/workout-tracker/internal/trace"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFinished = errors.New("session already finished")
)

// Session is one workout being recorded
type Session struct {
	ID        string
	Type      workout.Type
	StartedAt time.Time

	// mu serializes appends against teardown
	mu       sync.Mutex
	finished bool
	trace    *trace.Trace
	filter   *trace.Filter
	totals   *calculator.Totals
}

// newSession starts from a fresh trace so no samples are shared between
// sessions
func newSession(id string, t workout.Type, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		Type:      t,
		StartedAt: startedAt,
		trace:     trace.NewTrace(),
		filter:    trace.NewFilter(),
		totals:    calculator.NewTotals(calculator.DefaultMinStepMeters),
	}
}

// IngestResult reports what happened to a batch of pushed samples
type IngestResult struct {
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	DistanceMeters float64 `json:"distance_m"`
}

func (s *Session) ingest(samples []trace.Sample) (IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return IngestResult{}, ErrSessionFinished
	}

	var res IngestResult
	for _, sample := range samples {
		if s.filter.Ingest(sample, s.trace) {
			s.totals.Add(sample)
			res.Accepted++
		} else {
			res.Rejected++
		}
	}
	res.DistanceMeters = s.totals.DistanceMeters
	return res, nil
}

// Samples returns the trusted trace as of now
func (s *Session) Samples() []trace.Sample {
	return s.trace.Samples()
}

// FilterStats returns the sample filter counters
func (s *Session) FilterStats() trace.FilterStats {
	return s.filter.Stats()
}

// Snapshot recomputes the live metrics from the whole trace
func (s *Session) Snapshot(now time.Time) metrics.Snapshot {
	snap := metrics.Compute(s.trace.Samples(), now.Sub(s.StartedAt), s.Type)
	snap.SessionID = s.ID
	return snap
}

// Path returns the trace projected into the display datum
func (s *Session) Path() []projection.Point {
	samples := s.trace.Samples()
	points := make([]projection.Point, 0, len(samples))
	for p := range projection.Path(samples) {
		points = append(points, p)
	}
	return points
}

// finish stops further appends and summarizes the session
func (s *Session) finish(now time.Time, calories int) (workout.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return workout.Record{}, ErrSessionFinished
	}
	s.finished = true

	return workout.Record{
		SessionID:       s.ID,
		Type:            s.Type,
		DistanceMeters:  s.totals.DistanceMeters,
		DurationSeconds: now.Sub(s.StartedAt).Seconds(),
		StartTime:       s.StartedAt,
		EndTime:         now,
		Calories:        calories,
	}, nil
}

// cancel stops further appends without producing a record
func (s *Session) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}
