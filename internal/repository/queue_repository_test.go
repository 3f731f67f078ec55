package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// scriptedRandom replays values in order and then repeats the last one.
type scriptedRandom struct {
	mu     sync.Mutex
	values []float64
}

func (r *scriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.values[0]
	if len(r.values) > 1 {
		r.values = r.values[1:]
	}
	return v
}

type transition struct {
	id       string
	previous domain.JobStatus
	current  domain.JobStatus
}

type recorder struct {
	mu          sync.Mutex
	transitions []transition
}

func (r *recorder) record(job domain.QueueJob, previous domain.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{id: job.ID, previous: previous, current: job.Status})
}

func (r *recorder) snapshot() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...)
}

func newTestQueue(c *clockwork.FakeClock, values ...float64) (*QueueStore, *recorder) {
	rec := &recorder{}
	store := NewQueueStore(QueueOptions{
		Clock:        c,
		Random:       &scriptedRandom{values: values},
		OnTransition: rec.record,
	})
	return store, rec
}

// settle waits for the callbacks made due by the last Advance. Fake timers
// fire on their own goroutines; once they have run, every unfinished job
// owns exactly one waiter on the clock again.
func settle(t *testing.T, c *clockwork.FakeClock, store *QueueStore) {
	t.Helper()
	require.Eventually(t, func() bool {
		unfinished := 0
		for _, job := range store.GetAll() {
			if !job.Status.Terminal() {
				unfinished++
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		return c.BlockUntilContext(ctx, unfinished) == nil
	}, time.Second, time.Millisecond)
}

func advance(t *testing.T, c *clockwork.FakeClock, store *QueueStore, d time.Duration) {
	t.Helper()
	c.Advance(d)
	settle(t, c, store)
}

func statusOf(t *testing.T, store *QueueStore, id string) domain.QueueJob {
	t.Helper()
	job, ok := store.GetByID(id)
	require.True(t, ok)
	return job
}

func TestQueueStore_AddReturnsPending(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, _ := newTestQueue(c, 0.5)

	job := store.Add(domain.JobTypeEmailNotification, json.RawMessage(`{"to":"x"}`))

	require.NotEmpty(t, job.ID)
	require.Equal(t, domain.JobStatusPending, job.Status)
	require.Equal(t, epoch, job.CreatedAt)
	require.Nil(t, job.ProcessedAt)
	require.JSONEq(t, `{"to":"x"}`, string(job.Data))
	require.Equal(t, 1, store.Pending())
}

func TestQueueStore_LifecycleCompleted(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	// pickup delay 1000+0*5000, process delay 1000+0*3000, outcome 0 < 0.9.
	store, rec := newTestQueue(c, 0)
	job := store.Add(domain.JobTypeStatusUpdate, nil)

	advance(t, c, store, 999*time.Millisecond)
	require.Equal(t, domain.JobStatusPending, statusOf(t, store, job.ID).Status)

	advance(t, c, store, time.Millisecond)
	got := statusOf(t, store, job.ID)
	require.Equal(t, domain.JobStatusProcessing, got.Status)
	require.Nil(t, got.ProcessedAt)

	advance(t, c, store, time.Second)
	got = statusOf(t, store, job.ID)
	require.Equal(t, domain.JobStatusCompleted, got.Status)
	require.NotNil(t, got.ProcessedAt)
	require.Equal(t, epoch.Add(2*time.Second), *got.ProcessedAt)
	require.Zero(t, store.Pending())

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, time.Millisecond)
	require.Equal(t, []transition{
		{id: job.ID, previous: domain.JobStatusPending, current: domain.JobStatusProcessing},
		{id: job.ID, previous: domain.JobStatusProcessing, current: domain.JobStatusCompleted},
	}, rec.snapshot())
}

func TestQueueStore_LifecycleFailed(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	// pickup 0.0 -> 1s, process 0.0 -> 1s, outcome 0.95 >= 0.9 -> failed.
	store, _ := newTestQueue(c, 0, 0, 0.95)
	job := store.Add(domain.JobTypeAssignmentNotification, nil)

	advance(t, c, store, time.Second)
	advance(t, c, store, time.Second)
	got := statusOf(t, store, job.ID)
	require.Equal(t, domain.JobStatusFailed, got.Status)
	require.NotNil(t, got.ProcessedAt)

	advance(t, c, store, time.Hour)
	require.Equal(t, domain.JobStatusFailed, statusOf(t, store, job.ID).Status, "failed jobs are never retried")
}

func TestQueueStore_DelayBounds(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	// Draws just under 1 put both delays just under their upper bounds:
	// pickup at 5999.5ms, terminal 3999.7ms after the pickup step.
	store, _ := newTestQueue(c, 0.9999, 0.9999, 0)
	job := store.Add(domain.JobTypeEmailNotification, nil)

	advance(t, c, store, 5999*time.Millisecond)
	require.Equal(t, domain.JobStatusPending, statusOf(t, store, job.ID).Status)

	advance(t, c, store, time.Millisecond)
	require.Equal(t, domain.JobStatusProcessing, statusOf(t, store, job.ID).Status)

	advance(t, c, store, 3999*time.Millisecond)
	require.Equal(t, domain.JobStatusProcessing, statusOf(t, store, job.ID).Status)

	advance(t, c, store, time.Millisecond)
	require.Equal(t, domain.JobStatusCompleted, statusOf(t, store, job.ID).Status)
}

func TestQueueStore_ObservedStatusesArePrefixOfLifecycle(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, rec := newTestQueue(c, 0.3, 0.7, 0.5, 0.1, 0.99, 0.2, 0.4, 0.95)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, store.Add(domain.JobTypeEmailNotification, nil).ID)
	}

	observed := map[string][]domain.JobStatus{}
	for step := 0; step < 45; step++ {
		for _, id := range ids {
			job := statusOf(t, store, id)
			seq := observed[id]
			if len(seq) == 0 || seq[len(seq)-1] != job.Status {
				observed[id] = append(seq, job.Status)
			}
			require.Equal(t, job.Status.Terminal(), job.ProcessedAt != nil)
		}
		advance(t, c, store, 250*time.Millisecond)
	}

	for _, id := range ids {
		seq := observed[id]
		require.Len(t, seq, 3, "job %s", id)
		require.Equal(t, domain.JobStatusPending, seq[0])
		require.Equal(t, domain.JobStatusProcessing, seq[1])
		require.True(t, seq[2].Terminal())
	}
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 10 }, time.Second, time.Millisecond)
}

func TestQueueStore_GetByStatusAndClearCompleted(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	// Job A: pickup 1s, process 1s, success. Job B: pickup 1s, process 1s, failure.
	store, _ := newTestQueue(c, 0, 0, 0, 0, 0.5, 0.95)
	a := store.Add(domain.JobTypeEmailNotification, nil)
	b := store.Add(domain.JobTypeEmailNotification, nil)

	advance(t, c, store, time.Second)
	advance(t, c, store, time.Second)
	pending := store.Add(domain.JobTypeStatusUpdate, nil)

	completed := store.GetByStatus(domain.JobStatusCompleted)
	failed := store.GetByStatus(domain.JobStatusFailed)
	require.Len(t, completed, 1)
	require.Len(t, failed, 1)
	require.Equal(t, a.ID, completed[0].ID)
	require.Equal(t, b.ID, failed[0].ID)

	require.Equal(t, 1, store.ClearCompleted())
	require.Zero(t, store.ClearCompleted())

	remaining := store.GetAll()
	require.Len(t, remaining, 2)
	require.Equal(t, b.ID, remaining[0].ID)
	require.Equal(t, pending.ID, remaining[1].ID)
	_, ok := store.GetByID(a.ID)
	require.False(t, ok)
}

func TestQueueStore_TransitionDroppedWhenJobVanished(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, rec := newTestQueue(c, 0)
	job := store.Add(domain.JobTypeEmailNotification, nil)

	store.mu.Lock()
	store.jobs = nil
	store.mu.Unlock()

	c.Advance(time.Minute)
	require.Eventually(t, func() bool { return store.Pending() == 0 }, time.Second, time.Millisecond)
	_, ok := store.GetByID(job.ID)
	require.False(t, ok)
	require.Empty(t, rec.snapshot())
}

func TestQueueStore_SecondStageDroppedWhenJobVanished(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, rec := newTestQueue(c, 0)
	store.Add(domain.JobTypeEmailNotification, nil)

	advance(t, c, store, time.Second)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)

	store.mu.Lock()
	store.jobs = nil
	store.mu.Unlock()

	c.Advance(time.Minute)
	require.Eventually(t, func() bool { return store.Pending() == 0 }, time.Second, time.Millisecond)
	require.Len(t, rec.snapshot(), 1)
}

func TestQueueStore_CloseStopsTimers(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, rec := newTestQueue(c, 0)
	job := store.Add(domain.JobTypeEmailNotification, nil)

	store.Close()
	require.Zero(t, store.Pending())

	c.Advance(time.Minute)
	got := statusOf(t, store, job.ID)
	require.Equal(t, domain.JobStatusPending, got.Status)
	require.Empty(t, rec.snapshot())

	late := store.Add(domain.JobTypeEmailNotification, nil)
	require.Equal(t, domain.JobStatusPending, late.Status)
	require.Zero(t, store.Pending())
}

func TestQueueStore_ReturnsCopies(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	store, _ := newTestQueue(c, 0)
	data := json.RawMessage(`{"to":"x"}`)
	job := store.Add(domain.JobTypeEmailNotification, data)

	data[2] = 'X'
	job.Data[2] = 'Y'
	all := store.GetAll()
	all[0].Status = domain.JobStatusFailed

	got := statusOf(t, store, job.ID)
	require.JSONEq(t, `{"to":"x"}`, string(got.Data))
	require.Equal(t, domain.JobStatusPending, got.Status)
}

func TestQueueStore_SuccessRateOption(t *testing.T) {
	c := clockwork.NewFakeClockAt(epoch)
	never := 0.0
	store := NewQueueStore(QueueOptions{
		Clock:           c,
		Random:          &scriptedRandom{values: []float64{0}},
		PickupDelayMin:  10 * time.Millisecond,
		PickupDelayMax:  10 * time.Millisecond,
		ProcessDelayMin: 10 * time.Millisecond,
		ProcessDelayMax: 10 * time.Millisecond,
		SuccessRate:     &never,
	})
	job := store.Add(domain.JobTypeEmailNotification, nil)

	advance(t, c, store, 10*time.Millisecond)
	advance(t, c, store, 10*time.Millisecond)
	require.Equal(t, domain.JobStatusFailed, statusOf(t, store, job.ID).Status)
}

func TestQueueStore_RealClock(t *testing.T) {
	always := 1.0
	store := NewQueueStore(QueueOptions{
		PickupDelayMin:  time.Millisecond,
		PickupDelayMax:  2 * time.Millisecond,
		ProcessDelayMin: time.Millisecond,
		ProcessDelayMax: 2 * time.Millisecond,
		SuccessRate:     &always,
	})
	defer store.Close()

	job := store.Add(domain.JobTypeEmailNotification, json.RawMessage(`{"to":"x"}`))
	require.Eventually(t, func() bool {
		got, ok := store.GetByID(job.ID)
		return ok && got.Status == domain.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)
}
