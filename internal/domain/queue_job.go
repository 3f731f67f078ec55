package domain

import (
	"encoding/json"
	"time"
)

// JobType names the kind of simulated background work.
type JobType string

const (
	JobTypeEmailNotification      JobType = "email-notification"
	JobTypeStatusUpdate           JobType = "status-update"
	JobTypeAssignmentNotification JobType = "assignment-notification"
)

// JobTypes lists every job type.
var JobTypes = []JobType{
	JobTypeEmailNotification,
	JobTypeStatusUpdate,
	JobTypeAssignmentNotification,
}

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	for _, candidate := range JobTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// JobStatus is a forward-only state: pending -> processing -> completed|failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobStatuses lists every status in lifecycle order.
var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusProcessing,
	JobStatusCompleted,
	JobStatusFailed,
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	for _, candidate := range JobStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// QueueJob is a simulated unit of asynchronous work. Data is passed through untouched.
type QueueJob struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Data        json.RawMessage `json:"data,omitempty"`
	Status      JobStatus       `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	ProcessedAt *time.Time      `json:"processedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with j.
func (j QueueJob) Clone() QueueJob {
	if j.Data != nil {
		j.Data = append(json.RawMessage(nil), j.Data...)
	}
	if j.ProcessedAt != nil {
		processedAt := *j.ProcessedAt
		j.ProcessedAt = &processedAt
	}
	return j
}
