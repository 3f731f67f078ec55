package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/config"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// Sortable ticket fields.
const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByPriority  = "priority"
	SortByStatus    = "status"
	SortByTitle     = "title"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"
)

var sortableFields = map[string]func(a, b domain.Ticket) int{
	SortByCreatedAt: func(a, b domain.Ticket) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortByUpdatedAt: func(a, b domain.Ticket) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	SortByPriority:  func(a, b domain.Ticket) int { return a.Priority.Rank() - b.Priority.Rank() },
	SortByStatus:    func(a, b domain.Ticket) int { return statusRank(a.Status) - statusRank(b.Status) },
	SortByTitle: func(a, b domain.Ticket) int {
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	},
}

// TicketService coordinates ticket workflows on top of the TicketStore.
type TicketService struct {
	store           *repository.TicketStore
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	defaultPageSize int
	maxPageSize     int
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      *repository.TicketStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.TicketsConfig
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Reporter    string
	Priority    domain.TicketPriority
	Assignee    *string
	Tags        []string
}

// TicketUpdateInput describes a partial update; nil fields are untouched.
type TicketUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Assignee    *string
	Tags        []string
	SetTags     bool
}

// TicketQuery selects tickets. Only one of Search, Status, Priority applies,
// in that precedence. Paging applies when Page or PageSize is set.
type TicketQuery struct {
	Search    string
	Status    string
	Priority  string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// TicketPage is a listing result. Total counts matches before paging.
type TicketPage struct {
	Items     []domain.Ticket
	Total     int
	Page      int
	PageSize  int
	Paginated bool
}

// TicketStats summarizes the store for dashboards.
type TicketStats struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"byStatus"`
	ByPriority map[domain.TicketPriority]int `json:"byPriority"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultPageSize := deps.Config.DefaultPageSize
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	maxPageSize := deps.Config.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &TicketService{
		store:           deps.Store,
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// CreateTicket validates input and stores a new open ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (domain.Ticket, error) {
	in := domain.TicketCreate{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Reporter:    strings.TrimSpace(input.Reporter),
		Priority:    input.Priority,
		Assignee:    normalizeAssignee(input.Assignee),
		Tags:        normalizeTags(input.Tags),
	}

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if in.Reporter == "" {
		missing = append(missing, "reporter")
	}
	if len(missing) > 0 {
		return domain.Ticket{}, errorutil.NewValidationError(
			"Missing required fields: title, description, reporter",
			map[string]any{"missing": missing},
		)
	}
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}
	if !in.Priority.Valid() {
		return domain.Ticket{}, invalidEnum("priority", string(in.Priority), domain.TicketPriorities)
	}

	ticket := s.store.Create(in)
	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("priority", string(ticket.Priority)))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Reporter: ticket.Reporter,
			Assignee: ticket.Assignee,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket or a not-found error.
func (s *TicketService) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	ticket, ok := s.store.GetByID(id)
	if !ok {
		return domain.Ticket{}, ticketNotFound(id)
	}
	return ticket, nil
}

// UpdateTicket applies a partial update.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, input TicketUpdateInput) (domain.Ticket, error) {
	update, fields, err := buildTicketUpdate(input)
	if err != nil {
		return domain.Ticket{}, err
	}

	before, ok := s.store.GetByID(id)
	if !ok {
		return domain.Ticket{}, ticketNotFound(id)
	}
	after, ok := s.store.Update(id, update)
	if !ok {
		return domain.Ticket{}, ticketNotFound(id)
	}

	s.logger.Info("ticket updated", zap.String("ticket_id", id), zap.Strings("fields", fields))
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTicketUpdated,
		SubjectID: id,
		Payload:   events.TicketUpdatedPayload{Fields: fields},
	})
	if before.Status != after.Status {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTicketStatusChanged,
			SubjectID: id,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
				Reporter:  after.Reporter,
				Title:     after.Title,
			},
		})
	}
	if !sameAssignee(before.Assignee, after.Assignee) {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTicketAssigned,
			SubjectID: id,
			Payload: events.TicketAssignedPayload{
				OldAssignee: before.Assignee,
				NewAssignee: after.Assignee,
				Title:       after.Title,
			},
		})
	}
	return after, nil
}

// DeleteTicket removes a ticket permanently.
func (s *TicketService) DeleteTicket(ctx context.Context, id string) error {
	if !s.store.Delete(id) {
		return ticketNotFound(id)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", id))
	s.publishEvent(ctx, events.Event{Type: events.EventTicketDeleted, SubjectID: id})
	return nil
}

// ListTickets applies the query precedence search > status > priority > all,
// then optional sorting and paging.
func (s *TicketService) ListTickets(ctx context.Context, query TicketQuery) (TicketPage, error) {
	var tickets []domain.Ticket
	switch {
	case query.Search != "":
		tickets = s.store.Search(query.Search)
	case query.Status != "":
		tickets = s.store.GetByStatus(domain.TicketStatus(query.Status))
	case query.Priority != "":
		tickets = s.store.GetByPriority(domain.TicketPriority(query.Priority))
	default:
		tickets = s.store.GetAll()
	}

	if query.SortBy != "" || query.SortOrder != "" {
		if err := s.sortTickets(tickets, query.SortBy, query.SortOrder); err != nil {
			return TicketPage{}, err
		}
	}

	page := TicketPage{Items: tickets, Total: len(tickets)}
	if query.Page <= 0 && query.PageSize <= 0 {
		return page, nil
	}
	if query.Page < 0 || query.PageSize < 0 {
		return TicketPage{}, errorutil.NewValidationError("page and pageSize must be positive", nil)
	}

	page.Paginated = true
	page.Page = query.Page
	if page.Page == 0 {
		page.Page = 1
	}
	page.PageSize = query.PageSize
	if page.PageSize == 0 {
		page.PageSize = s.defaultPageSize
	}
	if page.PageSize > s.maxPageSize {
		page.PageSize = s.maxPageSize
	}

	pages := (len(tickets) + page.PageSize - 1) / page.PageSize
	if page.Page > pages {
		page.Items = []domain.Ticket{}
		return page, nil
	}
	start := (page.Page - 1) * page.PageSize
	end := min(start+page.PageSize, len(tickets))
	page.Items = tickets[start:end]
	return page, nil
}

// Stats counts tickets per status and priority.
func (s *TicketService) Stats(ctx context.Context) TicketStats {
	stats := TicketStats{
		ByStatus:   make(map[domain.TicketStatus]int, len(domain.TicketStatuses)),
		ByPriority: make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
	}
	for _, status := range domain.TicketStatuses {
		stats.ByStatus[status] = 0
	}
	for _, priority := range domain.TicketPriorities {
		stats.ByPriority[priority] = 0
	}
	for _, ticket := range s.store.GetAll() {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByPriority[ticket.Priority]++
	}
	return stats
}

// Count returns the number of stored tickets.
func (s *TicketService) Count() int {
	return s.store.Len()
}

func (s *TicketService) sortTickets(tickets []domain.Ticket, sortBy, sortOrder string) error {
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	compare, ok := sortableFields[sortBy]
	if !ok {
		return errorutil.NewValidationError("invalid sortBy", map[string]any{
			"sortBy":  sortBy,
			"allowed": []string{SortByCreatedAt, SortByUpdatedAt, SortByPriority, SortByStatus, SortByTitle},
		})
	}
	switch strings.ToLower(sortOrder) {
	case "", SortOrderDesc:
		sort.SliceStable(tickets, func(i, j int) bool { return compare(tickets[i], tickets[j]) > 0 })
	case SortOrderAsc:
		sort.SliceStable(tickets, func(i, j int) bool { return compare(tickets[i], tickets[j]) < 0 })
	default:
		return errorutil.NewValidationError("invalid sortOrder", map[string]any{
			"sortOrder": sortOrder,
			"allowed":   []string{SortOrderAsc, SortOrderDesc},
		})
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func buildTicketUpdate(input TicketUpdateInput) (domain.TicketUpdate, []string, error) {
	var update domain.TicketUpdate
	var fields []string

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return update, nil, errorutil.NewValidationError("title cannot be empty", nil)
		}
		update.Title = &title
		fields = append(fields, "title")
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if description == "" {
			return update, nil, errorutil.NewValidationError("description cannot be empty", nil)
		}
		update.Description = &description
		fields = append(fields, "description")
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return update, nil, invalidEnum("status", string(*input.Status), domain.TicketStatuses)
		}
		update.Status = input.Status
		fields = append(fields, "status")
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return update, nil, invalidEnum("priority", string(*input.Priority), domain.TicketPriorities)
		}
		update.Priority = input.Priority
		fields = append(fields, "priority")
	}
	if input.Assignee != nil {
		assignee := strings.TrimSpace(*input.Assignee)
		update.Assignee = &assignee
		fields = append(fields, "assignee")
	}
	if input.SetTags {
		tags := normalizeTags(input.Tags)
		update.Tags = &tags
		fields = append(fields, "tags")
	}
	return update, fields, nil
}

func normalizeAssignee(assignee *string) *string {
	if assignee == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*assignee)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func statusRank(status domain.TicketStatus) int {
	for i, candidate := range domain.TicketStatuses {
		if status == candidate {
			return i
		}
	}
	return -1
}

func ticketNotFound(id string) error {
	return errorutil.NewNotFound("Ticket", map[string]any{"id": id})
}

func invalidEnum[T ~string](field, value string, allowed []T) error {
	return errorutil.NewValidationError("invalid "+field, map[string]any{
		field:     value,
		"allowed": allowed,
	})
}
