// Package grpc implements the SessionService gRPC server handlers for live
// workout sessions and stored workout history.
package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/stuartshay/workout-tracker/internal/database"
	"github.com/stuartshay/workout-tracker/internal/queue"
	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// WorkoutStore is the stored workout history
type WorkoutStore interface {
	ListWorkouts(ctx context.Context, limit, offset int) ([]workout.Record, error)
	GetWorkout(ctx context.Context, id string) (workout.Record, error)
	DeleteWorkout(ctx context.Context, id string) error
	Totals(ctx context.Context) (database.Totals, error)
}

// JobTracker reports persistence job progress
type JobTracker interface {
	GetJob(jobID string) (*queue.Job, error)
	ListJobs(status queue.JobStatus, limit, offset int) []*queue.Job
}

// Server implements the SessionService gRPC server
type Server struct {
	sessions *session.Manager
	jobs     JobTracker
	store    WorkoutStore
}

var _ SessionServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(sessions *session.Manager, jobs JobTracker, store WorkoutStore) *Server {
	return &Server{
		sessions: sessions,
		jobs:     jobs,
		store:    store,
	}
}

// StartSession begins recording a workout
func (s *Server) StartSession(ctx context.Context, req *StartSessionRequest) (*StartSessionResponse, error) {
	t, err := workout.ParseType(req.Type)
	if err != nil {
		return nil, toStatus(err)
	}

	sess, err := s.sessions.Start(ctx, t)
	if err != nil {
		return nil, toStatus(err)
	}

	return &StartSessionResponse{
		SessionID:       sess.ID,
		Type:            sess.Type,
		StartedAt:       sess.StartedAt,
		ActivityProfile: sess.Type.ActivityProfile(),
		SpeedUnit:       sess.Type.SpeedUnit(),
	}, nil
}

// PushSamples feeds raw samples into a session
func (s *Server) PushSamples(ctx context.Context, req *PushSamplesRequest) (*PushSamplesResponse, error) {
	if err := requireID("session_id", req.SessionID); err != nil {
		return nil, err
	}

	res, err := s.sessions.Ingest(ctx, req.SessionID, req.Samples...)
	if err != nil {
		return nil, toStatus(err)
	}

	return &PushSamplesResponse{
		Accepted:       res.Accepted,
		Rejected:       res.Rejected,
		DistanceMeters: res.DistanceMeters,
	}, nil
}

// GetSnapshot returns the current metrics of a session
func (s *Server) GetSnapshot(ctx context.Context, req *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	if err := requireID("session_id", req.SessionID); err != nil {
		return nil, err
	}

	snap, err := s.sessions.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetSnapshotResponse{Snapshot: snap}, nil
}

// GetPath returns the session trace projected for map display
func (s *Server) GetPath(ctx context.Context, req *GetPathRequest) (*GetPathResponse, error) {
	if err := requireID("session_id", req.SessionID); err != nil {
		return nil, err
	}

	points, err := s.sessions.Path(ctx, req.SessionID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetPathResponse{Points: points}, nil
}

// FinishSession ends a session and queues its workout for storage
func (s *Server) FinishSession(ctx context.Context, req *FinishSessionRequest) (*FinishSessionResponse, error) {
	if err := requireID("session_id", req.SessionID); err != nil {
		return nil, err
	}
	if req.Calories < 0 {
		return nil, status.Error(codes.InvalidArgument, "calories must not be negative")
	}

	res, err := s.sessions.Finish(ctx, req.SessionID, req.Calories)
	if err != nil && res.Workout.ID == "" {
		return nil, toStatus(err)
	}

	resp := &FinishSessionResponse{
		Workout: summarize(res.Workout),
		JobID:   res.JobID,
	}
	if err != nil {
		// The session is already closed; report the storage problem
		// alongside the workout instead of losing it.
		log.Error().Err(err).Str("workout_id", res.Workout.ID).Msg("Workout not queued for storage")
		resp.PersistError = err.Error()
	}
	return resp, nil
}

// CancelSession discards a session
func (s *Server) CancelSession(ctx context.Context, req *CancelSessionRequest) (*CancelSessionResponse, error) {
	if err := requireID("session_id", req.SessionID); err != nil {
		return nil, err
	}
	if err := s.sessions.Cancel(ctx, req.SessionID); err != nil {
		return nil, toStatus(err)
	}
	return &CancelSessionResponse{}, nil
}

// GetJobStatus returns the progress of a workout persistence job
func (s *Server) GetJobStatus(_ context.Context, req *GetJobStatusRequest) (*GetJobStatusResponse, error) {
	if err := requireID("job_id", req.JobID); err != nil {
		return nil, err
	}

	job, err := s.jobs.GetJob(req.JobID)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := jobStatus(job)
	return &resp, nil
}

// ListJobs returns persistence jobs, newest first, optionally filtered by status
func (s *Server) ListJobs(_ context.Context, req *ListJobsRequest) (*ListJobsResponse, error) {
	limit, err := pageLimit(req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	st := queue.JobStatus(req.Status)
	switch st {
	case "", queue.StatusQueued, queue.StatusProcessing, queue.StatusCompleted, queue.StatusFailed:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown job status %q", req.Status)
	}

	jobs := s.jobs.ListJobs(st, limit, req.Offset)
	resp := &ListJobsResponse{
		Jobs:   make([]GetJobStatusResponse, 0, len(jobs)),
		Limit:  limit,
		Offset: req.Offset,
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, jobStatus(job))
	}
	return resp, nil
}

func jobStatus(job *queue.Job) GetJobStatusResponse {
	resp := GetJobStatusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		WorkoutID:    job.Workout.ID,
		QueuedAt:     job.QueuedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		ErrorMessage: job.ErrorMessage,
	}
	if job.Result != nil {
		resp.ProcessingTimeMS = job.Result.ProcessingTimeMS
	}
	return resp
}

// pageLimit applies the default and cap to a list limit and rejects a
// negative offset
func pageLimit(limit, offset int) (int, error) {
	if offset < 0 {
		return 0, status.Error(codes.InvalidArgument, "offset must not be negative")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return min(limit, maxListLimit), nil
}

// ListWorkouts returns stored workouts, newest first
func (s *Server) ListWorkouts(ctx context.Context, req *ListWorkoutsRequest) (*ListWorkoutsResponse, error) {
	limit, err := pageLimit(req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListWorkouts(ctx, limit, req.Offset)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &ListWorkoutsResponse{
		Workouts: make([]WorkoutSummary, 0, len(records)),
		Limit:    limit,
		Offset:   req.Offset,
	}
	for _, rec := range records {
		resp.Workouts = append(resp.Workouts, summarize(rec))
	}
	return resp, nil
}

// GetWorkout returns one stored workout
func (s *Server) GetWorkout(ctx context.Context, req *GetWorkoutRequest) (*GetWorkoutResponse, error) {
	if err := requireID("workout_id", req.WorkoutID); err != nil {
		return nil, err
	}

	rec, err := s.store.GetWorkout(ctx, req.WorkoutID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetWorkoutResponse{Workout: summarize(rec)}, nil
}

// DeleteWorkout removes a stored workout
func (s *Server) DeleteWorkout(ctx context.Context, req *DeleteWorkoutRequest) (*DeleteWorkoutResponse, error) {
	if err := requireID("workout_id", req.WorkoutID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteWorkout(ctx, req.WorkoutID); err != nil {
		return nil, toStatus(err)
	}

	log.Info().Str("workout_id", req.WorkoutID).Msg("Workout deleted")
	return &DeleteWorkoutResponse{}, nil
}

// GetTotals aggregates the stored workout history
func (s *Server) GetTotals(ctx context.Context, _ *GetTotalsRequest) (*GetTotalsResponse, error) {
	totals, err := s.store.Totals(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	summary := workout.Record{
		DistanceMeters:  totals.DistanceMeters,
		DurationSeconds: totals.DurationSeconds,
	}
	return &GetTotalsResponse{
		Count:           totals.Count,
		DistanceMeters:  totals.DistanceMeters,
		DurationSeconds: totals.DurationSeconds,
		Calories:        totals.Calories,
		Distance:        summary.FormattedDistance(),
		Duration:        summary.FormattedDuration(),
	}, nil
}

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return nil
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, queue.ErrJobNotFound),
		errors.Is(err, database.ErrWorkoutNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, workout.ErrUnknownType):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrSessionFinished):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, queue.ErrQueueFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	log.Error().Err(err).Msg("Internal error")
	return status.Error(codes.Internal, "internal error")
}

// PersistWorkouts returns the queue processor that writes finished
// workouts to the store
func PersistWorkouts(store interface {
	InsertWorkout(ctx context.Context, rec workout.Record) error
}) queue.ProcessFunc {
	return func(ctx context.Context, job *queue.Job) (*queue.JobResult, error) {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		if err := store.InsertWorkout(ctx, job.Workout); err != nil {
			return nil, err
		}

		log.Info().
			Str("job_id", job.ID).
			Str("workout_id", job.Workout.ID).
			Str("type", string(job.Workout.Type)).
			Str("distance", job.Workout.FormattedDistance()).
			Msg("Workout stored")

		return &queue.JobResult{WorkoutID: job.Workout.ID}, nil
	}
}
