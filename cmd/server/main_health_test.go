// Package main provides tests for the HTTP endpoints
package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stuartshay/workout-tracker/internal/projection"
	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/stream"
)

type noSessions struct{}

func (noSessions) Exists(string) bool { return false }

func (noSessions) Path(context.Context, string) ([]projection.Point, error) {
	return nil, session.ErrSessionNotFound
}

var _ sessionLookup = (*session.Manager)(nil)

func TestHealthzEndpoint(t *testing.T) {
	mux := newHTTPMux("workout-tracker", stream.NewHub(nil), noSessions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	expected := `{"status":"healthy","service":"workout-tracker"}`
	if rec.Body.String() != expected {
		t.Errorf("Expected body %s, got %s", expected, rec.Body.String())
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}
}

func TestHealthzRejectsPost(t *testing.T) {
	mux := newHTTPMux("workout-tracker", stream.NewHub(nil), noSessions{})

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestSessionRoutesUnknownSession(t *testing.T) {
	mux := newHTTPMux("workout-tracker", stream.NewHub(nil), noSessions{})

	for _, path := range []string{"/sessions/abc/stream", "/sessions/abc/path"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status 404, got %d", path, rec.Code)
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			setLogLevel(tt.level)
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Errorf("Expected level %s, got %s", tt.want, got)
			}
		})
	}
}
