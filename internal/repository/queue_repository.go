package repository

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Default simulator policy.
const (
	DefaultPickupDelayMin  = 1000 * time.Millisecond
	DefaultPickupDelayMax  = 6000 * time.Millisecond
	DefaultProcessDelayMin = 1000 * time.Millisecond
	DefaultProcessDelayMax = 4000 * time.Millisecond
	DefaultSuccessRate     = 0.9
)

// Random yields uniform values in [0,1).
type Random interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// TransitionFunc observes a job after it moved out of the previous status.
// It is called without the store lock held.
type TransitionFunc func(job domain.QueueJob, previous domain.JobStatus)

// QueueOptions configures a QueueStore. Zero values fall back to the defaults.
type QueueOptions struct {
	// Clock schedules the transitions; nil means the real clock.
	Clock           clockwork.Clock
	Random          Random
	PickupDelayMin  time.Duration
	PickupDelayMax  time.Duration
	ProcessDelayMin time.Duration
	ProcessDelayMax time.Duration
	// SuccessRate is the probability a processed job completes; nil means DefaultSuccessRate.
	SuccessRate  *float64
	OnTransition TransitionFunc
}

// QueueStore registers simulated jobs and advances each one through
// pending -> processing -> completed|failed on randomized timers.
//
// A timer whose job has disappeared by the time it fires does nothing.
type QueueStore struct {
	mu     sync.Mutex
	jobs   []domain.QueueJob
	timers map[string]clockwork.Timer
	closed bool

	clock        clockwork.Clock
	random       Random
	pickupMin    time.Duration
	pickupMax    time.Duration
	processMin   time.Duration
	processMax   time.Duration
	successRate  float64
	onTransition TransitionFunc
}

// NewQueueStore constructs an empty store.
func NewQueueStore(opts QueueOptions) *QueueStore {
	s := &QueueStore{
		timers:       make(map[string]clockwork.Timer),
		clock:        opts.Clock,
		random:       opts.Random,
		pickupMin:    opts.PickupDelayMin,
		pickupMax:    opts.PickupDelayMax,
		processMin:   opts.ProcessDelayMin,
		processMax:   opts.ProcessDelayMax,
		successRate:  DefaultSuccessRate,
		onTransition: opts.OnTransition,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.random == nil {
		s.random = globalRandom{}
	}
	if s.pickupMin == 0 && s.pickupMax == 0 {
		s.pickupMin, s.pickupMax = DefaultPickupDelayMin, DefaultPickupDelayMax
	}
	if s.processMin == 0 && s.processMax == 0 {
		s.processMin, s.processMax = DefaultProcessDelayMin, DefaultProcessDelayMax
	}
	if opts.SuccessRate != nil {
		s.successRate = *opts.SuccessRate
	}
	return s
}

// GetAll returns every job in enqueue order.
func (s *QueueStore) GetAll() []domain.QueueJob {
	return s.filter(func(domain.QueueJob) bool { return true })
}

// GetByID looks up a job; the bool is false when no job has that id.
func (s *QueueStore) GetByID(id string) (domain.QueueJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.QueueJob{}, false
	}
	return s.jobs[idx].Clone(), true
}

// GetByStatus returns jobs currently in status.
func (s *QueueStore) GetByStatus(status domain.JobStatus) []domain.QueueJob {
	return s.filter(func(j domain.QueueJob) bool { return j.Status == status })
}

// Add enqueues a pending job and schedules its pickup. The returned job is
// always pending; processing happens in the background.
func (s *QueueStore) Add(jobType domain.JobType, data json.RawMessage) domain.QueueJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := domain.QueueJob{
		ID:        uuid.NewString(),
		Type:      jobType,
		Data:      data,
		Status:    domain.JobStatusPending,
		CreatedAt: s.clock.Now(),
	}.Clone()
	s.jobs = append(s.jobs, job)
	s.scheduleLocked(job.ID, s.delay(s.pickupMin, s.pickupMax), s.startProcessing)
	return job.Clone()
}

// ClearCompleted removes every completed job and returns how many were removed.
// Failed jobs are kept.
func (s *QueueStore) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.QueueJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusCompleted {
			kept = append(kept, job)
		}
	}
	removed := len(s.jobs) - len(kept)
	s.jobs = kept
	return removed
}

// Close stops every outstanding timer. Jobs stay readable; no further
// transitions happen and new jobs are never picked up.
func (s *QueueStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of scheduled transitions that have not fired yet.
func (s *QueueStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *QueueStore) startProcessing(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	idx := s.indexOf(id)
	if s.closed || idx < 0 || s.jobs[idx].Status != domain.JobStatusPending {
		s.mu.Unlock()
		return
	}
	s.jobs[idx].Status = domain.JobStatusProcessing
	job := s.jobs[idx].Clone()
	s.scheduleLocked(id, s.delay(s.processMin, s.processMax), s.finish)
	s.mu.Unlock()

	s.notify(job, domain.JobStatusPending)
}

func (s *QueueStore) finish(id string) {
	s.mu.Lock()
	delete(s.timers, id)
	idx := s.indexOf(id)
	if s.closed || idx < 0 || s.jobs[idx].Status != domain.JobStatusProcessing {
		s.mu.Unlock()
		return
	}
	status := domain.JobStatusFailed
	if s.random.Float64() < s.successRate {
		status = domain.JobStatusCompleted
	}
	now := s.clock.Now()
	s.jobs[idx].Status = status
	s.jobs[idx].ProcessedAt = &now
	job := s.jobs[idx].Clone()
	s.mu.Unlock()

	s.notify(job, domain.JobStatusProcessing)
}

func (s *QueueStore) scheduleLocked(id string, d time.Duration, fn func(string)) {
	if s.closed {
		return
	}
	s.timers[id] = s.clock.AfterFunc(d, func() { fn(id) })
}

func (s *QueueStore) delay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.random.Float64()*float64(hi-lo))
}

func (s *QueueStore) notify(job domain.QueueJob, previous domain.JobStatus) {
	if s.onTransition != nil {
		s.onTransition(job, previous)
	}
}

func (s *QueueStore) filter(keep func(domain.QueueJob) bool) []domain.QueueJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.QueueJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if keep(job) {
			result = append(result, job.Clone())
		}
	}
	return result
}

func (s *QueueStore) indexOf(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}
