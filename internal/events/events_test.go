package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestNotifierPublishSubscribe(t *testing.T) {
	n := NewNotifier(testLogger())

	var got []Event
	unsub := n.Subscribe("res-1", func(e Event) {
		got = append(got, e)
	})
	defer unsub()

	n.Publish("res-1", Event{Type: EventStatusChanged})
	n.Publish("res-2", Event{Type: EventStatusChanged})

	require.Len(t, got, 1)
	assert.Equal(t, "res-1", got[0].ReservationID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier(testLogger())

	calls := 0
	unsub := n.Subscribe("res-1", func(Event) { calls++ })

	n.Publish("res-1", Event{Type: EventStatusChanged})
	unsub()
	n.Publish("res-1", Event{Type: EventStatusChanged})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, n.SubscriberCount("res-1"))
}

func TestNotifierPanickingSubscriberIsIsolated(t *testing.T) {
	n := NewNotifier(testLogger())

	defer n.Subscribe("res-1", func(Event) { panic("boom") })()

	delivered := false
	defer n.Subscribe("res-1", func(Event) { delivered = true })()

	assert.NotPanics(t, func() {
		n.Publish("res-1", Event{Type: EventStatusChanged})
	})
	assert.True(t, delivered)
}

func TestNotifierConcurrentAccess(t *testing.T) {
	n := NewNotifier(testLogger())

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := n.Subscribe("res-1", func(Event) { delivered.Add(1) })
			n.Publish("res-1", Event{Type: EventStatusChanged})
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, n.SubscriberCount("res-1"))
	assert.GreaterOrEqual(t, delivered.Load(), int64(20))
}

func TestPublishJSON(t *testing.T) {
	n := NewNotifier(testLogger())

	var got Event
	defer n.Subscribe("res-1", func(e Event) { got = e })()

	err := n.PublishJSON("res-1", EventReservationCreated, map[string]string{"status": "pending"})
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	assert.Equal(t, "pending", payload["status"])
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisSink(client, "")
	n := NewNotifier(testLogger(), sink)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, sink.Channel("res-9"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n.Publish("res-9", Event{Type: EventStatusChanged})

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var e Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
	assert.Equal(t, EventStatusChanged, e.Type)
	assert.Equal(t, "res-9", e.ReservationID)
}

func TestRedisSinkErrorDoesNotBlockLocalDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	n := NewNotifier(testLogger(), NewRedisSink(client, ""))

	delivered := false
	defer n.Subscribe("res-1", func(Event) { delivered = true })()

	n.Publish("res-1", Event{Type: EventStatusChanged})
	assert.True(t, delivered)
}
