package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/stuartshay/workout-tracker/internal/config"
	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		ServiceName:  "workout-tracker",
		Environment:  "staging",
		OTELEndpoint: "collector:4317",
		OTELEnabled:  true,
	}

	got := FromAppConfig(cfg, "1.2.3")
	assert.Equal(t, Config{
		ServiceName:      "workout-tracker",
		ServiceNamespace: ServiceNamespace,
		ServiceVersion:   "1.2.3",
		Environment:      "staging",
		OTLPEndpoint:     "collector:4317",
		Enabled:          true,
	}, got)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSessionSpansReachProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := install(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	m := session.NewManager(nil)
	ctx := context.Background()
	s, err := m.Start(ctx, workout.Running)
	require.NoError(t, err)
	_, err = m.Finish(ctx, s.ID, 0)
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "session.Start")
	assert.Contains(t, names, "session.Finish")
}
