// Package stream fans live session snapshots out to WebSocket subscribers,
// optionally sharing them between replicas through Redis pub/sub.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/stuartshay/workout-tracker/internal/metrics"
)

const (
	channelPrefix  = "workout:"
	channelSuffix  = ":snapshot"
	channelPattern = channelPrefix + "*" + channelSuffix

	subscriberBuffer = 16
)

// Subscriber receives the encoded snapshots of one session
type Subscriber struct {
	SessionID string
	Send      chan []byte
}

// envelope tags a snapshot with the hub that produced it, so a hub can skip
// its own messages when they come back from Redis. Closed marks the end of
// the session instead of a snapshot.
type envelope struct {
	Origin   string          `json:"origin"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
	Closed   bool            `json:"closed,omitempty"`
}

// Hub delivers snapshots to subscribers by session
type Hub struct {
	redis  *redis.Client
	origin string

	mu      sync.RWMutex
	clients map[string]map[*Subscriber]struct{}

	ready chan struct{}
}

// NewHub creates a hub. A nil redis client keeps delivery in-process.
func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		redis:   redisClient,
		origin:  uuid.New().String(),
		clients: map[string]map[*Subscriber]struct{}{},
		ready:   make(chan struct{}),
	}
}

// NewRedisClient returns a client for addr, or nil when addr is empty
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Subscribe registers a subscriber for a session
func (h *Hub) Subscribe(sessionID string) *Subscriber {
	sub := &Subscriber{
		SessionID: sessionID,
		Send:      make(chan []byte, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Subscriber]struct{}{}
	}
	h.clients[sessionID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.clients[sub.SessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.clients, sub.SessionID)
	}
	close(sub.Send)
}

// Subscribers returns the number of local subscribers of a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Publish encodes a snapshot and delivers it to local subscribers and, when
// configured, to other replicas
func (h *Hub) Publish(sessionID string, snap metrics.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to encode snapshot")
		return
	}

	h.deliver(sessionID, payload)
	h.broadcast(sessionID, envelope{Origin: h.origin, Snapshot: payload})
}

// CloseSession closes the channels of every subscriber of a session, here
// and on other replicas
func (h *Hub) CloseSession(sessionID string) {
	h.closeLocal(sessionID)
	h.broadcast(sessionID, envelope{Origin: h.origin, Closed: true})
}

func (h *Hub) broadcast(sessionID string, env envelope) {
	if h.redis == nil {
		return
	}

	msg, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to encode envelope")
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(sessionID), msg).Err(); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Redis publish failed")
	}
}

// Ready is closed once the Redis subscription is active
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Run forwards snapshots published by other replicas to local subscribers
// until ctx is cancelled. Without Redis it only waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		close(h.ready)
		<-ctx.Done()
		return nil
	}

	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channelPattern, err)
	}
	close(h.ready)
	log.Info().Str("pattern", channelPattern).Msg("Snapshot fan-out subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.forward(msg)
		}
	}
}

func (h *Hub) forward(msg *redis.Message) {
	sessionID := sessionIDFromChannel(msg.Channel)
	if sessionID == "" {
		return
	}

	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		log.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed snapshot message")
		return
	}
	if env.Origin == h.origin {
		return
	}
	if env.Closed {
		h.closeLocal(sessionID)
		return
	}
	h.deliver(sessionID, env.Snapshot)
}

func (h *Hub) closeLocal(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.clients[sessionID] {
		close(sub.Send)
	}
	delete(h.clients, sessionID)
}

// deliver drops the message for subscribers whose buffer is full
func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.clients[sessionID] {
		select {
		case sub.Send <- payload:
		default:
		}
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

// sessionIDFromChannel parses workout:{session}:snapshot
func sessionIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
