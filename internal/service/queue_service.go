package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// QueueService exposes the simulated job queue.
type QueueService struct {
	store      *repository.QueueStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// QueueStats summarizes queued jobs.
type QueueStats struct {
	Total    int                      `json:"total"`
	ByStatus map[domain.JobStatus]int `json:"byStatus"`
	ByType   map[domain.JobType]int   `json:"byType"`
}

// NewQueueService constructs the service.
func NewQueueService(store *repository.QueueStore, dispatcher events.Dispatcher, logger *zap.Logger) *QueueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueService{store: store, dispatcher: dispatcher, logger: logger}
}

// JobTransitionPublisher returns a store hook that publishes job_status_changed
// events. It is wired into repository.QueueOptions.OnTransition.
func JobTransitionPublisher(dispatcher events.Dispatcher, logger *zap.Logger) repository.TransitionFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(job domain.QueueJob, previous domain.JobStatus) {
		if dispatcher == nil {
			return
		}
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventJobStatusChanged,
			SubjectID: job.ID,
			Timestamp: time.Now(),
			Payload: events.JobStatusChangedPayload{
				JobType:     job.Type,
				OldStatus:   previous,
				NewStatus:   job.Status,
				ProcessedAt: job.ProcessedAt,
			},
		}
		if err := dispatcher.Publish(context.Background(), event); err != nil {
			logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}
}

// Enqueue validates the job type and adds a pending job.
func (s *QueueService) Enqueue(ctx context.Context, jobType string, data json.RawMessage) (domain.QueueJob, error) {
	jt := domain.JobType(strings.TrimSpace(jobType))
	if jt == "" {
		return domain.QueueJob{}, errorutil.NewValidationError("Job type is required", nil)
	}
	if !jt.Valid() {
		return domain.QueueJob{}, errorutil.NewValidationError("unknown job type", map[string]any{
			"type":    string(jt),
			"allowed": domain.JobTypes,
		})
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		data = nil
	}

	job := s.store.Add(jt, data)
	s.logger.Info("job enqueued", zap.String("job_id", job.ID), zap.String("job_type", string(job.Type)))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventJobEnqueued,
		SubjectID: job.ID,
		Payload:   events.JobEnqueuedPayload{JobType: job.Type},
	})
	return job, nil
}

// ListJobs returns every job, or only those in status when it is set.
func (s *QueueService) ListJobs(ctx context.Context, status string) []domain.QueueJob {
	if status == "" {
		return s.store.GetAll()
	}
	return s.store.GetByStatus(domain.JobStatus(status))
}

// GetJob returns a job or a not-found error.
func (s *QueueService) GetJob(ctx context.Context, id string) (domain.QueueJob, error) {
	job, ok := s.store.GetByID(id)
	if !ok {
		return domain.QueueJob{}, errorutil.NewNotFound("Job", map[string]any{"id": id})
	}
	return job, nil
}

// ClearCompleted drops completed jobs and reports how many went.
func (s *QueueService) ClearCompleted(ctx context.Context) int {
	removed := s.store.ClearCompleted()
	s.logger.Info("completed jobs cleared", zap.Int("removed", removed))
	s.publishEvent(ctx, events.Event{
		Type:    events.EventJobsCleared,
		Payload: events.JobsClearedPayload{Removed: removed},
	})
	return removed
}

// Stats counts jobs per status and type.
func (s *QueueService) Stats(ctx context.Context) QueueStats {
	stats := QueueStats{
		ByStatus: make(map[domain.JobStatus]int, len(domain.JobStatuses)),
		ByType:   make(map[domain.JobType]int, len(domain.JobTypes)),
	}
	for _, status := range domain.JobStatuses {
		stats.ByStatus[status] = 0
	}
	for _, jobType := range domain.JobTypes {
		stats.ByType[jobType] = 0
	}
	for _, job := range s.store.GetAll() {
		stats.Total++
		stats.ByStatus[job.Status]++
		stats.ByType[job.Type]++
	}
	return stats
}

// CountByStatus is used by metrics gauges.
func (s *QueueService) CountByStatus(status domain.JobStatus) int {
	return len(s.store.GetByStatus(status))
}

func (s *QueueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
