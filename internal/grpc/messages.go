package grpc

import (
	"time"

	"github.com/stuartshay/workout-tracker/internal/metrics"
	"github.com/stuartshay/workout-tracker/internal/projection"
	"github.com/stuartshay/workout-tracker/internal/trace"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

type StartSessionRequest struct {
	Type string `json:"type"`
}

type StartSessionResponse struct {
	SessionID       string       `json:"session_id"`
	Type            workout.Type `json:"type"`
	StartedAt       time.Time    `json:"started_at"`
	ActivityProfile string       `json:"activity_profile"`
	SpeedUnit       string       `json:"speed_unit"`
}

type PushSamplesRequest struct {
	SessionID string         `json:"session_id"`
	Samples   []trace.Sample `json:"samples"`
}

type PushSamplesResponse struct {
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	DistanceMeters float64 `json:"distance_m"`
}

type GetSnapshotRequest struct {
	SessionID string `json:"session_id"`
}

type GetSnapshotResponse struct {
	Snapshot metrics.Snapshot `json:"snapshot"`
}

type GetPathRequest struct {
	SessionID string `json:"session_id"`
}

type GetPathResponse struct {
	Points []projection.Point `json:"points"`
}

type FinishSessionRequest struct {
	SessionID string `json:"session_id"`
	Calories  int    `json:"calories"`
}

// FinishSessionResponse always carries the finished workout. PersistError is
// set when the workout could not be queued for storage.
type FinishSessionResponse struct {
	Workout      WorkoutSummary `json:"workout"`
	JobID        string         `json:"job_id,omitempty"`
	PersistError string         `json:"persist_error,omitempty"`
}

type CancelSessionRequest struct {
	SessionID string `json:"session_id"`
}

type CancelSessionResponse struct{}

type GetJobStatusRequest struct {
	JobID string `json:"job_id"`
}

type GetJobStatusResponse struct {
	JobID            string     `json:"job_id"`
	Status           string     `json:"status"`
	WorkoutID        string     `json:"workout_id"`
	QueuedAt         time.Time  `json:"queued_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	ProcessingTimeMS int64      `json:"processing_time_ms,omitempty"`
}

type ListJobsRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

type ListJobsResponse struct {
	Jobs   []GetJobStatusResponse `json:"jobs"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

type ListWorkoutsRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type ListWorkoutsResponse struct {
	Workouts []WorkoutSummary `json:"workouts"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// WorkoutSummary is a stored workout with its display strings
type WorkoutSummary struct {
	workout.Record
	Distance    string `json:"distance"`
	Duration    string `json:"duration"`
	AveragePace string `json:"average_pace"`
}

type GetWorkoutRequest struct {
	WorkoutID string `json:"workout_id"`
}

type GetWorkoutResponse struct {
	Workout WorkoutSummary `json:"workout"`
}

type DeleteWorkoutRequest struct {
	WorkoutID string `json:"workout_id"`
}

type DeleteWorkoutResponse struct{}

type GetTotalsRequest struct{}

type GetTotalsResponse struct {
	Count           int     `json:"count"`
	DistanceMeters  float64 `json:"distance_m"`
	DurationSeconds float64 `json:"duration_s"`
	Calories        int     `json:"calories"`
	Distance        string  `json:"distance"`
	Duration        string  `json:"duration"`
}

func summarize(rec workout.Record) WorkoutSummary {
	return WorkoutSummary{
		Record:      rec,
		Distance:    rec.FormattedDistance(),
		Duration:    rec.FormattedDuration(),
		AveragePace: rec.AveragePace(),
	}
}
