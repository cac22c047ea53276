package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/stuartshay/workout-tracker/internal/config"
	"github.com/stuartshay/workout-tracker/internal/database"
	"github.com/stuartshay/workout-tracker/internal/feed"
	grpcserver "github.com/stuartshay/workout-tracker/internal/grpc"
	"github.com/stuartshay/workout-tracker/internal/queue"
	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/stream"
	"github.com/stuartshay/workout-tracker/internal/tracing"
)

var version = "dev"

func main() {
	// Initialize structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	log.Info().Str("version", version).Msg("Starting workout-tracker service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	setLogLevel(cfg.LogLevel)

	log.Info().
		Str("service_name", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Str("grpc_port", cfg.GRPCPort).
		Str("http_port", cfg.HTTPPort).
		Str("db_host", cfg.PostgresHost).
		Str("db_port", cfg.PostgresPort).
		Str("mqtt_broker", cfg.MQTTBroker).
		Str("redis_addr", cfg.RedisAddr).
		Dur("snapshot_interval", cfg.SnapshotInterval).
		Msg("Configuration loaded")

	shutdownTracer, err := tracing.InitTracer(tracing.FromAppConfig(cfg, version))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	// Initialize database client
	dbClient, err := database.NewClient(cfg.DatabaseDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database client")
	}
	defer dbClient.Close()

	log.Info().Msg("Database connection established")

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := dbClient.Migrate(initCtx); err != nil {
		log.Fatal().Err(err).Msg("Database migration failed")
	}
	initCancel()

	// Workouts are written by the queue workers
	jobs := queue.NewQueue(cfg.QueueWorkers, grpcserver.PersistWorkouts(dbClient),
		queue.WithRetry(3, 500*time.Millisecond),
	)

	// Live snapshot fan-out; streams are closed when their session ends
	hub := stream.NewHub(stream.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword))
	sessions := session.NewManager(jobs, session.WithEndListener(hub))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Snapshot fan-out stopped")
		}
	}()
	go sessions.Run(ctx, cfg.SnapshotInterval, hub)

	// Optional MQTT sample feed
	var subscriber *feed.Subscriber
	if cfg.MQTTBroker != "" {
		subscriber, err = feed.NewSubscriber(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, sessions)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid MQTT configuration")
		}
		if err := subscriber.Start(ctx); err != nil {
			log.Fatal().Err(err).Str("broker", cfg.MQTTBroker).Msg("Failed to connect to MQTT broker")
		}
		log.Info().Str("broker", cfg.MQTTBroker).Str("topic", cfg.MQTTTopic).Msg("MQTT sample feed connected")
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))

	// Register session service
	grpcserver.RegisterSessionServiceServer(grpcServer, grpcserver.NewServer(sessions, jobs, dbClient))

	// Register health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcserver.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Enable server reflection for debugging
	reflection.Register(grpcServer)

	// Start gRPC server
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create TCP listener")
	}

	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("gRPC server listening")
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("gRPC server failed")
		}
	}()

	// Start HTTP server for probes and snapshot streams
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           newHTTPMux(cfg.ServiceName, hub, sessions),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info().Msg("Shutdown signal received, gracefully stopping...")
	healthServer.Shutdown()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if subscriber != nil {
		subscriber.Close()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stop gRPC server
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	case <-stopped:
		log.Info().Msg("gRPC server stopped")
	}

	// Drain pending workout writes
	if err := jobs.Shutdown(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("Failed to drain workout queue")
	}
	stats := jobs.GetStats()
	log.Info().
		Int("completed", stats["completed"]).
		Int("failed", stats["failed"]).
		Int("pending", stats["queued"]+stats["processing"]).
		Msg("Workout queue stopped")

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown tracer")
	}

	log.Info().Msg("Service shutdown complete")
}

// sessionLookup is what the HTTP routes need from the session manager
type sessionLookup interface {
	stream.SessionChecker
	stream.PathSource
}

// newHTTPMux routes the liveness probe and the per-session live views
func newHTTPMux(serviceName string, hub *stream.Hub, sessions sessionLookup) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthzHandler(serviceName))
	mux.HandleFunc("GET /sessions/{id}/stream", stream.Handler(hub, sessions))
	mux.HandleFunc("GET /sessions/{id}/path", stream.PathHandler(sessions))
	return mux
}

// healthzHandler answers the liveness probe
func healthzHandler(serviceName string) http.HandlerFunc {
	body := fmt.Sprintf(`{"status":"healthy","service":%q}`, serviceName)
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body)) //nolint:errcheck
	}
}

// setLogLevel configures the global log level
func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Str("level", level).Msg("Log level set")
}
