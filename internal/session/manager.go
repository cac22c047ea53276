package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/stuartshay/workout-tracker/internal/metrics"
	"github.com/stuartshay/workout-tracker/internal/projection"
	"github.com/stuartshay/workout-tracker/internal/trace"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

var tracer = otel.Tracer("github.com/stuartshay/workout-tracker/internal/session")

// Recorder persists finished workouts. It returns an identifier for the
// persistence job.
type Recorder interface {
	Record(ctx context.Context, rec workout.Record) (string, error)
}

// Publisher receives the periodic snapshot of every active session
type Publisher interface {
	Publish(sessionID string, snap metrics.Snapshot)
}

// EndListener is told when a session finishes or is cancelled
type EndListener interface {
	CloseSession(sessionID string)
}

// FinishResult is the outcome of finishing a session
type FinishResult struct {
	Workout workout.Record
	JobID   string
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithEndListener notifies l whenever a session ends
func WithEndListener(l EndListener) Option {
	return func(m *Manager) {
		m.ended = l
	}
}

// Manager tracks active sessions
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	recorder Recorder
	ended    EndListener
	now      func() time.Time
}

// NewManager creates a session manager. recorder may be nil, in which case
// finished workouts are returned but not persisted.
func NewManager(recorder Recorder, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		recorder: recorder,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins a new session with an empty trace
func (m *Manager) Start(ctx context.Context, t workout.Type) (*Session, error) {
	t, err := workout.ParseType(string(t))
	if err != nil {
		return nil, err
	}

	_, span := tracer.Start(ctx, "session.Start")
	defer span.End()

	s := newSession(uuid.New().String(), t, m.now().UTC())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	span.SetAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("workout.type", string(t)),
	)
	log.Info().
		Str("session_id", s.ID).
		Str("workout_type", string(t)).
		Str("activity_profile", t.ActivityProfile()).
		Msg("Session started")

	return s, nil
}

// Get returns an active session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Exists reports whether a session is active
func (m *Manager) Exists(id string) bool {
	_, err := m.Get(id)
	return err == nil
}

// Ingest pushes raw samples into a session. Inaccurate or out-of-order
// samples are dropped and counted, not reported as errors.
func (m *Manager) Ingest(_ context.Context, id string, samples ...trace.Sample) (IngestResult, error) {
	s, err := m.Get(id)
	if err != nil {
		return IngestResult{}, err
	}

	res, err := s.ingest(samples)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest into %s: %w", id, err)
	}

	if res.Rejected > 0 {
		log.Debug().
			Str("session_id", id).
			Int("accepted", res.Accepted).
			Int("rejected", res.Rejected).
			Msg("Samples rejected by filter")
	}
	return res, nil
}

// Snapshot computes the current metrics of a session
func (m *Manager) Snapshot(_ context.Context, id string) (metrics.Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return s.Snapshot(m.now()), nil
}

// Path returns the projected path of a session
func (m *Manager) Path(_ context.Context, id string) ([]projection.Point, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Path(), nil
}

// Finish ends a session, hands its workout record to the recorder and
// forgets the session
func (m *Manager) Finish(ctx context.Context, id string, calories int) (FinishResult, error) {
	ctx, span := tracer.Start(ctx, "session.Finish", oteltrace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	s, err := m.remove(id)
	if err != nil {
		return FinishResult{}, err
	}
	defer m.notifyEnd(id)

	rec, err := s.finish(m.now().UTC(), calories)
	if err != nil {
		return FinishResult{}, fmt.Errorf("finish %s: %w", id, err)
	}
	rec.ID = uuid.New().String()

	log.Info().
		Str("session_id", id).
		Str("workout_id", rec.ID).
		Float64("distance_m", rec.DistanceMeters).
		Float64("duration_s", rec.DurationSeconds).
		Str("average_pace", rec.AveragePace()).
		Msg("Session finished")

	result := FinishResult{Workout: rec}
	if m.recorder == nil {
		return result, nil
	}

	jobID, err := m.recorder.Record(ctx, rec)
	if err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("record workout %s: %w", rec.ID, err)
	}
	result.JobID = jobID
	return result, nil
}

// Cancel discards a session without recording a workout
func (m *Manager) Cancel(_ context.Context, id string) error {
	s, err := m.remove(id)
	if err != nil {
		return err
	}
	s.cancel()
	m.notifyEnd(id)
	log.Info().Str("session_id", id).Msg("Session cancelled")
	return nil
}

// Active returns the IDs of all active sessions, sorted
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run publishes a snapshot of every active session each interval until ctx
// is cancelled
func (m *Manager) Run(ctx context.Context, interval time.Duration, pub Publisher) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publishAll(pub)
		}
	}
}

func (m *Manager) publishAll(pub Publisher) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	now := m.now()
	for _, s := range sessions {
		pub.Publish(s.ID, s.Snapshot(now))
	}
}

func (m *Manager) notifyEnd(id string) {
	if m.ended != nil {
		m.ended.CloseSession(id)
	}
}

func (m *Manager) remove(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return s, nil
}
