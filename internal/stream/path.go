package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/projection"
	"github.com/stuartshay/workout-tracker/internal/session"
)

// PathSource returns the projected path of an active session
type PathSource interface {
	Path(ctx context.Context, id string) ([]projection.Point, error)
}

// PathHandler serves the projected path of a session as a GeoJSON
// FeatureCollection. It is mounted on "GET /sessions/{id}/path".
func PathHandler(paths PathSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("id")

		points, err := paths.Path(r.Context(), sessionID)
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to build path")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		fc := projection.GeoJSON(points, map[string]any{"session_id": sessionID})
		w.Header().Set("Content-Type", "application/geo+json")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to write path")
		}
	}
}
