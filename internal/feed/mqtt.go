// Package feed brings location samples into the tracker: an MQTT
// subscriber that pushes them into live sessions, and an NMEA decoder with a
// serial source for receivers attached to the bridge.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/trace"
)

// DefaultTopic is the sample subscription; the wildcard segment is the
// session ID
const DefaultTopic = "workout/+/samples"

var errEmptyPayload = errors.New("empty payload")

// Ingester accepts samples for a session
type Ingester interface {
	Ingest(ctx context.Context, id string, samples ...trace.Sample) (session.IngestResult, error)
}

// Subscriber pushes samples published on MQTT into live sessions
type Subscriber struct {
	client   mqtt.Client
	topic    string
	segment  int
	ingester Ingester
	ctx      context.Context
}

// NewSubscriber creates a subscriber for broker. The topic filter must
// contain exactly one single-level wildcard, which carries the session ID.
func NewSubscriber(broker, clientID, topic string, ingester Ingester) (*Subscriber, error) {
	segment, err := sessionSegment(topic)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{
		topic:    topic,
		segment:  segment,
		ingester: ingester,
		ctx:      context.Background(),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOrderMatters(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Str("broker", broker).Msg("MQTT connection lost")
		})
	s.client = mqtt.NewClient(opts)

	return s, nil
}

// Start connects to the broker. The subscription is (re)established on every
// connect.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Close disconnects from the broker
func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}

func (s *Subscriber) onConnect(c mqtt.Client) {
	token := c.Subscribe(s.topic, 1, s.HandleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", s.topic).Msg("MQTT subscribe failed")
		return
	}
	log.Info().Str("topic", s.topic).Msg("Subscribed to sample feed")
}

// HandleMessage decodes a sample payload and pushes it into the session
// named by the topic. Malformed messages are logged and dropped.
func (s *Subscriber) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	sessionID := sessionFromTopic(msg.Topic(), s.segment)
	if sessionID == "" {
		log.Warn().Str("topic", msg.Topic()).Msg("Dropping sample message without session")
		return
	}

	samples, err := DecodeSamples(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Dropping malformed sample message")
		return
	}

	res, err := s.ingester.Ingest(s.ctx, sessionID, samples...)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Sample ingest failed")
		return
	}
	log.Debug().
		Str("session_id", sessionID).
		Int("accepted", res.Accepted).
		Int("rejected", res.Rejected).
		Msg("Samples ingested from MQTT")
}

// DecodeSamples accepts a JSON sample or an array of samples
func DecodeSamples(payload []byte) ([]trace.Sample, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, errEmptyPayload
	}

	if payload[0] == '[' {
		var samples []trace.Sample
		if err := json.Unmarshal(payload, &samples); err != nil {
			return nil, fmt.Errorf("decode samples: %w", err)
		}
		return samples, nil
	}

	var sample trace.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return []trace.Sample{sample}, nil
}

// Publisher sends samples to the feed topic of a session
type Publisher struct {
	client mqtt.Client
}

// NewPublisher connects a publishing client to broker
func NewPublisher(broker, clientID string) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{client: client}, nil
}

// Publish sends one sample for a session
func (p *Publisher) Publish(sessionID string, sample trace.Sample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}

	token := p.client.Publish(SampleTopic(sessionID), 1, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

// Close disconnects from the broker
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// SampleTopic is the topic samples for a session are published on
func SampleTopic(sessionID string) string {
	return "workout/" + sessionID + "/samples"
}

func sessionSegment(topic string) (int, error) {
	idx := -1
	for i, part := range strings.Split(topic, "/") {
		switch part {
		case "+":
			if idx >= 0 {
				return 0, fmt.Errorf("topic %q has more than one wildcard", topic)
			}
			idx = i
		case "#":
			return 0, fmt.Errorf("topic %q must not use a multi-level wildcard", topic)
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("topic %q has no session wildcard", topic)
	}
	return idx, nil
}

func sessionFromTopic(topic string, segment int) string {
	parts := strings.Split(topic, "/")
	if segment >= len(parts) {
		return ""
	}
	return parts[segment]
}
