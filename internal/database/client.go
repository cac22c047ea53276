// Package database provides the PostgreSQL workout store with connection
// pooling and health checks.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/stuartshay/workout-tracker/internal/workout"
)

// ErrWorkoutNotFound is returned when no workout has the requested ID
var ErrWorkoutNotFound = errors.New("workout not found")

const schema = `
CREATE TABLE IF NOT EXISTS public.workouts (
	id               TEXT PRIMARY KEY,
	session_id       TEXT NOT NULL,
	type             TEXT NOT NULL,
	distance_m       DOUBLE PRECISION NOT NULL,
	duration_s       DOUBLE PRECISION NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ NOT NULL,
	calories         INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS workouts_start_time_idx ON public.workouts (start_time DESC);
`

// Client wraps a PostgreSQL database connection
type Client struct {
	db *sql.DB
}

// Totals aggregates every stored workout
type Totals struct {
	Count           int
	DistanceMeters  float64
	DurationSeconds float64
	Calories        int
}

// NewClient creates a new database client with connection pooling
func NewClient(dsn string) (*Client, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (also failed to close: %w)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Migrate creates the workouts table if it does not exist
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return nil
}

// InsertWorkout stores a finished workout. Inserting the same ID twice is a
// no-op so retried jobs do not duplicate rows.
func (c *Client) InsertWorkout(ctx context.Context, rec workout.Record) error {
	query := `
		INSERT INTO public.workouts
			(id, session_id, type, distance_m, duration_s, start_time, end_time, calories)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := c.db.ExecContext(ctx, query,
		rec.ID,
		rec.SessionID,
		string(rec.Type),
		rec.DistanceMeters,
		rec.DurationSeconds,
		rec.StartTime,
		rec.EndTime,
		rec.Calories,
	)
	if err != nil {
		return fmt.Errorf("insert workout %s: %w", rec.ID, err)
	}
	return nil
}

// ListWorkouts returns stored workouts, newest first
func (c *Client) ListWorkouts(ctx context.Context, limit, offset int) ([]workout.Record, error) {
	query := `
		SELECT id, session_id, type, distance_m, duration_s, start_time, end_time, calories
		FROM public.workouts
		ORDER BY start_time DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := c.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }() // nolint:errcheck // Close in defer, error not actionable

	var workouts []workout.Record
	for rows.Next() {
		rec, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return workouts, nil
}

// GetWorkout returns one stored workout
func (c *Client) GetWorkout(ctx context.Context, id string) (workout.Record, error) {
	query := `
		SELECT id, session_id, type, distance_m, duration_s, start_time, end_time, calories
		FROM public.workouts
		WHERE id = $1
	`

	rec, err := scanWorkout(c.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return workout.Record{}, fmt.Errorf("%w: %s", ErrWorkoutNotFound, id)
	}
	return rec, err
}

// DeleteWorkout removes a stored workout
func (c *Client) DeleteWorkout(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM public.workouts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workout %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workout %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrWorkoutNotFound, id)
	}
	return nil
}

// Totals returns the count and sums over all stored workouts
func (c *Client) Totals(ctx context.Context) (Totals, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(distance_m), 0),
			COALESCE(SUM(duration_s), 0),
			COALESCE(SUM(calories), 0)
		FROM public.workouts
	`

	var t Totals
	err := c.db.QueryRowContext(ctx, query).Scan(&t.Count, &t.DistanceMeters, &t.DurationSeconds, &t.Calories)
	if err != nil {
		return Totals{}, fmt.Errorf("totals query failed: %w", err)
	}
	return t, nil
}

// HealthCheck verifies database connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row scanner) (workout.Record, error) {
	var rec workout.Record
	var t string
	var calories sql.NullInt64

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&t,
		&rec.DistanceMeters,
		&rec.DurationSeconds,
		&rec.StartTime,
		&rec.EndTime,
		&calories,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.Record{}, err
	}
	if err != nil {
		return workout.Record{}, fmt.Errorf("scan failed: %w", err)
	}

	rec.Type = workout.Type(t)
	if calories.Valid {
		rec.Calories = int(calories.Int64)
	}
	rec.StartTime = rec.StartTime.UTC()
	rec.EndTime = rec.EndTime.UTC()
	return rec, nil
}
