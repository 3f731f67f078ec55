package events

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventJobEnqueued         EventType = "job_enqueued"
	EventJobStatusChanged    EventType = "job_status_changed"
	EventJobsCleared         EventType = "jobs_cleared"
)

// AllEventTypes lists every event the services emit.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketDeleted,
	EventJobEnqueued,
	EventJobStatusChanged,
	EventJobsCleared,
}

// Event represents a domain event emitted by services.
// SubjectID is the ticket or job the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subjectId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
	Reporter string                `json:"reporter"`
	Assignee *string               `json:"assignee,omitempty"`
}

// TicketUpdatedPayload lists the fields an update touched.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"oldStatus"`
	NewStatus domain.TicketStatus `json:"newStatus"`
	Reporter  string              `json:"reporter"`
	Title     string              `json:"title"`
}

// TicketAssignedPayload payload. A nil NewAssignee means unassigned.
type TicketAssignedPayload struct {
	OldAssignee *string `json:"oldAssignee,omitempty"`
	NewAssignee *string `json:"newAssignee,omitempty"`
	Title       string  `json:"title"`
}

// JobEnqueuedPayload payload.
type JobEnqueuedPayload struct {
	JobType domain.JobType `json:"jobType"`
}

// JobStatusChangedPayload payload.
type JobStatusChangedPayload struct {
	JobType     domain.JobType   `json:"jobType"`
	OldStatus   domain.JobStatus `json:"oldStatus"`
	NewStatus   domain.JobStatus `json:"newStatus"`
	ProcessedAt *time.Time       `json:"processedAt,omitempty"`
}

// JobsClearedPayload payload.
type JobsClearedPayload struct {
	Removed int `json:"removed"`
}
