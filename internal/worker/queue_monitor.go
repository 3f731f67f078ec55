package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
)

// QueueMonitor logs job lifecycle events and counts them in metrics.
type QueueMonitor struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// StartQueueMonitor subscribes a QueueMonitor to the job events.
func StartQueueMonitor(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *QueueMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &QueueMonitor{metrics: metrics, logger: logger}
	if dispatcher == nil {
		return m
	}
	dispatcher.Subscribe(events.EventJobEnqueued, m.handleEnqueued)
	dispatcher.Subscribe(events.EventJobStatusChanged, m.handleStatusChanged)
	return m
}

func (m *QueueMonitor) handleEnqueued(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.JobEnqueuedPayload)
	if !ok {
		return nil
	}
	m.metrics.RecordJobEnqueued(string(payload.JobType))
	return nil
}

func (m *QueueMonitor) handleStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.JobStatusChangedPayload)
	if !ok {
		return nil
	}
	m.metrics.RecordJobTransition(string(payload.JobType), string(payload.NewStatus))

	fields := []zap.Field{
		zap.String("job_id", event.SubjectID),
		zap.String("job_type", string(payload.JobType)),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)),
	}
	if payload.NewStatus == domain.JobStatusFailed {
		m.logger.Warn("job failed", fields...)
		return nil
	}
	m.logger.Debug("job transitioned", fields...)
	return nil
}
