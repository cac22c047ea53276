package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/workout-tracker/internal/metrics"
	"github.com/stuartshay/workout-tracker/internal/session"
	"github.com/stuartshay/workout-tracker/internal/workout"
)

var (
	_ session.Publisher   = (*Hub)(nil)
	_ session.EndListener = (*Hub)(nil)
)

func testSnapshot(sessionID string, distance float64) metrics.Snapshot {
	return metrics.Snapshot{
		SessionID:      sessionID,
		WorkoutType:    workout.Running,
		DistanceMeters: distance,
		Elapsed:        90 * time.Second,
		SampleCount:    30,
		DisplaySpeed:   `5'00"`,
		ElapsedDisplay: "00:01:30",
	}
}

func receive(t *testing.T, sub *Subscriber) metrics.Snapshot {
	t.Helper()
	select {
	case msg, ok := <-sub.Send:
		require.True(t, ok, "subscriber channel closed")
		var snap metrics.Snapshot
		require.NoError(t, json.Unmarshal(msg, &snap))
		return snap
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for snapshot")
	}
	return metrics.Snapshot{}
}

func requireClosed(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case _, ok := <-sub.Send:
		require.False(t, ok, "expected subscriber channel to be closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for subscriber to close")
	}
}

func assertNothing(t *testing.T, sub *Subscriber) {
	t.Helper()
	select {
	case msg := <-sub.Send:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubPublishLocal(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("session-1")
	other := hub.Subscribe("session-2")
	defer hub.Unsubscribe(sub)
	defer hub.Unsubscribe(other)

	hub.Publish("session-1", testSnapshot("session-1", 1234.5))

	got := receive(t, sub)
	assert.Equal(t, "session-1", got.SessionID)
	assert.Equal(t, 1234.5, got.DistanceMeters)
	assert.Equal(t, `5'00"`, got.DisplaySpeed)
	assertNothing(t, other)
}

func TestHubDropsWhenSubscriberIsSlow(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("session-1")
	defer hub.Unsubscribe(sub)

	for i := 0; i < subscriberBuffer*3; i++ {
		hub.Publish("session-1", testSnapshot("session-1", float64(i)))
	}
	assert.Len(t, sub.Send, subscriberBuffer)
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe("session-2")
	assert.Equal(t, 1, hub.Subscribers("session-2"))

	hub.Unsubscribe(sub)
	_, ok := <-sub.Send
	assert.False(t, ok, "expected channel closed")
	assert.Equal(t, 0, hub.Subscribers("session-2"))

	// a second unsubscribe must not panic on the closed channel
	hub.Unsubscribe(sub)
}

func TestCloseSession(t *testing.T) {
	hub := NewHub(nil)
	first := hub.Subscribe("session-1")
	second := hub.Subscribe("session-1")
	other := hub.Subscribe("session-2")
	defer hub.Unsubscribe(other)

	hub.CloseSession("session-1")

	requireClosed(t, first)
	requireClosed(t, second)
	assert.Equal(t, 0, hub.Subscribers("session-1"))
	assert.Equal(t, 1, hub.Subscribers("session-2"))

	// the handler still unsubscribes on its way out
	assert.NotPanics(t, func() { hub.Unsubscribe(first) })

	// publishing after the end reaches nobody
	hub.Publish("session-1", testSnapshot("session-1", 10))
	hub.Publish("session-2", testSnapshot("session-2", 20))
	assert.Equal(t, 20.0, receive(t, other).DistanceMeters)
}

func TestChannelHelpers(t *testing.T) {
	ch := redisChannel("abc")
	assert.Equal(t, "workout:abc:snapshot", ch)
	assert.Equal(t, "abc", sessionIDFromChannel(ch))

	for _, bad := range []string{"bad", "workout::snapshot", "tracking:abc:broadcast", "workout:abc"} {
		assert.Empty(t, sessionIDFromChannel(bad), bad)
	}
}

func TestRunWithoutRedis(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	<-hub.Ready()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHubRedisFanOut(t *testing.T) {
	s := miniredis.RunT(t)

	newReplica := func() (*Hub, context.CancelFunc) {
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		hub := NewHub(client)
		ctx, cancel := context.WithCancel(context.Background())
		go func() { _ = hub.Run(ctx) }()

		select {
		case <-hub.Ready():
		case <-time.After(time.Second):
			t.Fatal("redis subscription not ready")
		}
		return hub, cancel
	}

	a, stopA := newReplica()
	defer stopA()
	b, stopB := newReplica()
	defer stopB()

	onA := a.Subscribe("session-redis")
	onB := b.Subscribe("session-redis")
	defer a.Unsubscribe(onA)
	defer b.Unsubscribe(onB)

	a.Publish("session-redis", testSnapshot("session-redis", 42))

	assert.Equal(t, 42.0, receive(t, onA).DistanceMeters)
	assert.Equal(t, 42.0, receive(t, onB).DistanceMeters, "other replica receives through redis")

	// the publishing replica must not see its own message twice
	assertNothing(t, onA)
}

func TestHubIgnoresMalformedRedisMessages(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	hub := NewHub(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()
	<-hub.Ready()

	sub := hub.Subscribe("s1")
	defer hub.Unsubscribe(sub)

	require.NoError(t, client.Publish(context.Background(), redisChannel("s1"), "not json").Err())
	assertNothing(t, sub)
}

func TestHubRedisCloseSession(t *testing.T) {
	s := miniredis.RunT(t)

	newReplica := func() *Hub {
		client := redis.NewClient(&redis.Options{Addr: s.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		hub := NewHub(client)
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go func() { _ = hub.Run(ctx) }()
		<-hub.Ready()
		return hub
	}

	a := newReplica()
	b := newReplica()

	onA := a.Subscribe("session-end")
	onB := b.Subscribe("session-end")

	a.CloseSession("session-end")

	requireClosed(t, onA)
	requireClosed(t, onB)
	assert.Eventually(t, func() bool { return b.Subscribers("session-end") == 0 }, time.Second, 5*time.Millisecond)
}
