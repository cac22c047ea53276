// Command nmea-bridge reads NMEA sentences from a serial GPS receiver and
// publishes the decoded fixes to the MQTT sample feed of one session.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/config"
	"github.com/stuartshay/workout-tracker/internal/feed"
	"github.com/stuartshay/workout-tracker/internal/trace"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.SessionID == "" {
		log.Fatal().Msg("SESSION_ID is required")
	}
	if cfg.MQTTBroker == "" {
		log.Fatal().Msg("MQTT_BROKER is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, err := feed.OpenSerial(cfg.NMEAPort, cfg.NMEABaud)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.NMEAPort).Msg("Failed to open serial port")
	}

	publisher, err := feed.NewPublisher(cfg.MQTTBroker, cfg.MQTTClientID+"-nmea")
	if err != nil {
		_ = port.Close()
		log.Fatal().Err(err).Str("broker", cfg.MQTTBroker).Msg("Failed to connect to MQTT broker")
	}
	defer publisher.Close()

	log.Info().
		Str("port", cfg.NMEAPort).
		Int("baud", cfg.NMEABaud).
		Float64("uere_m", cfg.NMEAUERE).
		Str("session_id", cfg.SessionID).
		Str("topic", feed.SampleTopic(cfg.SessionID)).
		Msg("NMEA bridge started")

	// A blocked serial read only returns once the port is closed
	go func() {
		<-ctx.Done()
		_ = port.Close()
	}()

	published := 0
	err = feed.NewDecoder(cfg.NMEAUERE).Scan(ctx, port, func(s trace.Sample) error {
		if err := publisher.Publish(cfg.SessionID, s); err != nil {
			log.Warn().Err(err).Msg("Failed to publish sample")
			return nil
		}
		published++
		log.Debug().
			Time("timestamp", s.Timestamp).
			Float64("lat", s.Latitude).
			Float64("lon", s.Longitude).
			Float64("accuracy_m", s.HorizontalAccuracy).
			Msg("Sample published")
		return nil
	})
	if err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Msg("NMEA stream failed")
	}

	log.Info().Int("published", published).Msg("NMEA bridge stopped")
}
