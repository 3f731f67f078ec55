package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketDeleted, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated})
	require.EqualError(t, err, "first failed")
	require.Equal(t, []string{"first", "second"}, calls)

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventJobsCleared}))
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher()
	seen := map[EventType]int{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		seen[e.Type]++
		return nil
	})

	for _, eventType := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), Event{Type: eventType}))
	}
	require.Len(t, seen, len(AllEventTypes))
}

type fakeRedis struct {
	mu       sync.Mutex
	channel  string
	messages [][]byte
	err      error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.channel = channel
	f.messages = append(f.messages, message.([]byte))
	cmd.SetVal(1)
	return cmd
}

func TestRedisForwarderPublishesJSON(t *testing.T) {
	client := &fakeRedis{}
	forwarder := NewRedisForwarder(client, "tracker:events", zap.NewNop())
	d := NewInMemoryDispatcher()
	forwarder.Register(d)

	event := Event{
		ID:        "evt-1",
		Type:      EventJobStatusChanged,
		SubjectID: "job-1",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload: JobStatusChangedPayload{
			JobType:   domain.JobTypeEmailNotification,
			OldStatus: domain.JobStatusPending,
			NewStatus: domain.JobStatusProcessing,
		},
	}
	require.NoError(t, d.Publish(context.Background(), event))

	require.Equal(t, "tracker:events", client.channel)
	require.Len(t, client.messages, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.messages[0], &decoded))
	require.Equal(t, "job_status_changed", decoded["type"])
	require.Equal(t, "job-1", decoded["subjectId"])
	payload := decoded["payload"].(map[string]any)
	require.Equal(t, "processing", payload["newStatus"])
}

func TestRedisForwarderReportsFailure(t *testing.T) {
	client := &fakeRedis{err: errors.New("connection refused")}
	forwarder := NewRedisForwarder(client, "tracker:events", zap.NewNop())

	err := forwarder.Forward(context.Background(), Event{Type: EventTicketCreated})
	require.ErrorContains(t, err, "connection refused")
}

func TestRedisForwarderRegisterWithoutClient(t *testing.T) {
	d := NewInMemoryDispatcher()
	var forwarder *RedisForwarder
	require.NotPanics(t, func() { forwarder.Register(d) })
	require.NotPanics(t, func() { NewRedisForwarder(nil, "c", zap.NewNop()).Register(d) })
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
}
