package repository

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TicketStore is the in-memory registry of tickets. It is safe for
// concurrent use and never hands out references into its backing slice.
type TicketStore struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	tickets []domain.Ticket
}

// NewTicketStore constructs an empty store.
func NewTicketStore(clk clockwork.Clock) *TicketStore {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &TicketStore{clock: clk}
}

// GetAll returns every ticket in insertion order.
func (s *TicketStore) GetAll() []domain.Ticket {
	return s.filter(func(domain.Ticket) bool { return true })
}

// GetByID looks up a ticket; the bool is false when no ticket has that id.
func (s *TicketStore) GetByID(id string) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}
	return s.tickets[idx].Clone(), true
}

// Create appends a new ticket. Status always starts as open.
func (s *TicketStore) Create(in domain.TicketCreate) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	ticket := domain.Ticket{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    in.Priority,
		Assignee:    in.Assignee,
		Reporter:    in.Reporter,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ticket = ticket.Clone()
	s.tickets = append(s.tickets, ticket)
	return ticket.Clone()
}

// Update merges the non-nil fields of in over the ticket. ID, reporter and
// createdAt are never touched; updatedAt never moves backwards.
func (s *TicketStore) Update(id string, in domain.TicketUpdate) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Ticket{}, false
	}

	ticket := s.tickets[idx].Clone()
	if in.Title != nil {
		ticket.Title = *in.Title
	}
	if in.Description != nil {
		ticket.Description = *in.Description
	}
	if in.Status != nil {
		ticket.Status = *in.Status
	}
	if in.Priority != nil {
		ticket.Priority = *in.Priority
	}
	if in.Assignee != nil {
		if *in.Assignee == "" {
			ticket.Assignee = nil
		} else {
			assignee := *in.Assignee
			ticket.Assignee = &assignee
		}
	}
	if in.Tags != nil {
		ticket.Tags = append([]string{}, (*in.Tags)...)
	}
	if now := s.clock.Now(); now.After(ticket.UpdatedAt) {
		ticket.UpdatedAt = now
	}

	s.tickets[idx] = ticket
	return ticket.Clone(), true
}

// Delete removes the ticket permanently and reports whether it existed.
func (s *TicketStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.tickets = append(s.tickets[:idx:idx], s.tickets[idx+1:]...)
	return true
}

// GetByStatus returns tickets whose status equals status exactly.
func (s *TicketStore) GetByStatus(status domain.TicketStatus) []domain.Ticket {
	return s.filter(func(t domain.Ticket) bool { return t.Status == status })
}

// GetByPriority returns tickets whose priority equals priority exactly.
func (s *TicketStore) GetByPriority(priority domain.TicketPriority) []domain.Ticket {
	return s.filter(func(t domain.Ticket) bool { return t.Priority == priority })
}

// Search matches query case-insensitively as a substring of the title,
// the description, or any tag.
func (s *TicketStore) Search(query string) []domain.Ticket {
	needle := strings.ToLower(query)
	return s.filter(func(t domain.Ticket) bool {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			return true
		}
		for _, tag := range t.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
		return false
	})
}

// Len returns the number of stored tickets.
func (s *TicketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Seed installs the demo tickets shown on a fresh dashboard.
func (s *TicketStore) Seed() []domain.Ticket {
	now := s.clock.Now()
	seeds := []struct {
		in      domain.TicketCreate
		status  domain.TicketStatus
		created time.Time
	}{
		{
			in: domain.TicketCreate{
				Title:       "Login page not loading",
				Description: "Users are unable to access the login page. The page returns a 500 error.",
				Priority:    domain.TicketPriorityHigh,
				Assignee:    strPtr("john.doe@example.com"),
				Reporter:    "jane.smith@example.com",
				Tags:        []string{"bug", "frontend", "urgent"},
			},
			status:  domain.TicketStatusOpen,
			created: now,
		},
		{
			in: domain.TicketCreate{
				Title:       "Add dark mode support",
				Description: "Implement dark mode theme across the application for better user experience.",
				Priority:    domain.TicketPriorityMedium,
				Assignee:    strPtr("alice.johnson@example.com"),
				Reporter:    "bob.wilson@example.com",
				Tags:        []string{"feature", "ui", "enhancement"},
			},
			status:  domain.TicketStatusInProgress,
			created: now.Add(-24 * time.Hour),
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Ticket, 0, len(seeds))
	for _, seed := range seeds {
		ticket := domain.Ticket{
			ID:          uuid.NewString(),
			Title:       seed.in.Title,
			Description: seed.in.Description,
			Status:      seed.status,
			Priority:    seed.in.Priority,
			Assignee:    seed.in.Assignee,
			Reporter:    seed.in.Reporter,
			Tags:        seed.in.Tags,
			CreatedAt:   seed.created,
			UpdatedAt:   now,
		}.Clone()
		s.tickets = append(s.tickets, ticket)
		out = append(out, ticket.Clone())
	}
	return out
}

func (s *TicketStore) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if keep(ticket) {
			result = append(result, ticket.Clone())
		}
	}
	return result
}

func (s *TicketStore) indexOf(id string) int {
	for i := range s.tickets {
		if s.tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func strPtr(v string) *string {
	return &v
}
