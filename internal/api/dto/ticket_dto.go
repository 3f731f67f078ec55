package dto

import (
	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CreateTicketRequest payload. Status is accepted for compatibility but new
// tickets always start open.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Assignee    *string               `json:"assignee"`
	Reporter    string                `json:"reporter"`
	Tags        []string              `json:"tags"`
}

// UpdateTicketRequest payload. Omitted fields are left unchanged; an empty
// assignee unassigns. id, reporter and createdAt are not updatable.
type UpdateTicketRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *domain.TicketStatus   `json:"status"`
	Priority    *domain.TicketPriority `json:"priority"`
	Assignee    *string                `json:"assignee"`
	Tags        *[]string              `json:"tags"`
}

// TicketListQuery captures GET /tickets query parameters.
type TicketListQuery struct {
	Status    string `query:"status"`
	Priority  string `query:"priority"`
	Search    string `query:"search"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder"`
	Page      string `query:"page"`
	PageSize  string `query:"pageSize"`
}
