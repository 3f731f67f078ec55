package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fixedRandom always draws the same value, so delays hit their lower
// bound and jobs succeed.
type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, event := range l.events {
		out = append(out, event.Type)
	}
	return out
}

func (l *eventLog) last(eventType events.EventType) (events.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Type == eventType {
			return l.events[i], true
		}
	}
	return events.Event{}, false
}

type harness struct {
	clock   *clockwork.FakeClock
	tickets *TicketService
	queue   *QueueService
	jobs    *repository.QueueStore
	log     *eventLog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := clockwork.NewFakeClockAt(epoch)
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	events.SubscribeAll(dispatcher, log.handle)

	jobs := repository.NewQueueStore(repository.QueueOptions{
		Clock:        c,
		Random:       fixedRandom(0),
		OnTransition: JobTransitionPublisher(dispatcher, nil),
	})
	t.Cleanup(jobs.Close)

	return &harness{
		clock: c,
		tickets: NewTicketService(TicketDependencies{
			Store:      repository.NewTicketStore(c),
			Dispatcher: dispatcher,
			Config:     config.TicketsConfig{DefaultPageSize: 2, MaxPageSize: 3},
		}),
		queue: NewQueueService(jobs, dispatcher, nil),
		jobs:  jobs,
		log:   log,
	}
}

// waitForStatus polls until the job reaches status. Fake timers fire on
// their own goroutines, so a transition lands shortly after Advance.
func (h *harness) waitForStatus(t *testing.T, id string, status domain.JobStatus) domain.QueueJob {
	t.Helper()
	var job domain.QueueJob
	require.Eventually(t, func() bool {
		got, ok := h.jobs.GetByID(id)
		job = got
		return ok && got.Status == status
	}, time.Second, time.Millisecond)
	return job
}
