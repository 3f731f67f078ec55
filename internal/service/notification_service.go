package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
)

// JobEnqueuer accepts simulated jobs. QueueService satisfies it.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, data json.RawMessage) (domain.QueueJob, error)
}

// NotificationService turns ticket events into simulated notification jobs.
// Nothing is delivered; the jobs only walk the queue lifecycle.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      JobEnqueuer
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// notificationData is the opaque job payload.
type notificationData struct {
	TicketID  string `json:"ticketId"`
	Event     string `json:"event"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Subject   string `json:"subject"`
	OldStatus string `json:"oldStatus,omitempty"`
	NewStatus string `json:"newStatus,omitempty"`
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue JobEnqueuer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to ticket events and reports whether it did.
func (n *NotificationService) RegisterHandlers() bool {
	if n.dispatcher == nil || n.queue == nil || !n.cfg.Enabled {
		return false
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	return true
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Debug("TicketCreated", zap.String("ticket_id", event.SubjectID))
	return n.enqueue(ctx, domain.JobTypeEmailNotification, notificationData{
		TicketID: event.SubjectID,
		Event:    string(event.Type),
		From:     n.cfg.EmailFrom,
		To:       payload.Reporter,
		Subject:  "Ticket created: " + payload.Title,
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Debug("TicketStatusChanged", zap.String("ticket_id", event.SubjectID))
	return n.enqueue(ctx, domain.JobTypeStatusUpdate, notificationData{
		TicketID:  event.SubjectID,
		Event:     string(event.Type),
		To:        payload.Reporter,
		Subject:   fmt.Sprintf("Ticket %q is now %s", payload.Title, payload.NewStatus),
		OldStatus: string(payload.OldStatus),
		NewStatus: string(payload.NewStatus),
	})
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	if payload.NewAssignee == nil {
		return nil
	}
	n.logger.Debug("TicketAssigned", zap.String("ticket_id", event.SubjectID))
	return n.enqueue(ctx, domain.JobTypeAssignmentNotification, notificationData{
		TicketID: event.SubjectID,
		Event:    string(event.Type),
		From:     n.cfg.EmailFrom,
		To:       *payload.NewAssignee,
		Subject:  "Ticket assigned: " + payload.Title,
	})
}

func (n *NotificationService) enqueue(ctx context.Context, jobType domain.JobType, data notificationData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	job, err := n.queue.Enqueue(ctx, string(jobType), raw)
	if err != nil {
		return err
	}
	n.logger.Info("notification job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(jobType)),
		zap.String("ticket_id", data.TicketID))
	return nil
}
