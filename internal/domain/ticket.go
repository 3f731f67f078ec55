package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities from low (0) to urgent (3); unknown values rank -1.
func (p TicketPriority) Rank() int {
	for i, candidate := range TicketPriorities {
		if p == candidate {
			return i
		}
	}
	return -1
}

// Ticket is a trackable unit of support work.
type Ticket struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
	Assignee    *string        `json:"assignee,omitempty"`
	Reporter    string         `json:"reporter"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Clone returns a copy that shares no mutable state with t.
func (t Ticket) Clone() Ticket {
	if t.Assignee != nil {
		assignee := *t.Assignee
		t.Assignee = &assignee
	}
	t.Tags = append(make([]string, 0, len(t.Tags)), t.Tags...)
	return t
}

// TicketCreate holds the fields accepted when creating a ticket.
type TicketCreate struct {
	Title       string
	Description string
	Priority    TicketPriority
	Assignee    *string
	Reporter    string
	Tags        []string
}

// TicketUpdate is a partial update; nil fields are left unchanged.
// An empty Assignee clears the assignment.
type TicketUpdate struct {
	Title       *string
	Description *string
	Status      *TicketStatus
	Priority    *TicketPriority
	Assignee    *string
	Tags        *[]string
}
