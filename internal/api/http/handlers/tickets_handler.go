package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListTickets(c.UserContext(), query)
	if err != nil {
		return err
	}
	resp := dto.List(page.Items)
	if page.Paginated {
		resp.Total = &page.Total
		resp.Page = &page.Page
		resp.PageSize = &page.PageSize
	}
	return c.JSON(resp)
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Reporter:    req.Reporter,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(ticket))
}

// Stats GET /tickets/stats/overview.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(dto.OK(h.service.Stats(c.UserContext())))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(ticket))
}

// UpdateTicket PUT|PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.TicketUpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		Assignee:    req.Assignee,
	}
	if req.Tags != nil {
		input.Tags = *req.Tags
		input.SetTags = true
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(ticket))
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	if err := h.service.DeleteTicket(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.Message("Ticket deleted successfully", nil))
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketQuery, error) {
	var q dto.TicketListQuery
	if err := c.QueryParser(&q); err != nil {
		return service.TicketQuery{}, apperrors.NewValidationError("invalid query", nil)
	}
	page, err := parseInt("page", q.Page)
	if err != nil {
		return service.TicketQuery{}, err
	}
	pageSize, err := parseInt("pageSize", q.PageSize)
	if err != nil {
		return service.TicketQuery{}, err
	}
	return service.TicketQuery{
		Search:    strings.TrimSpace(q.Search),
		Status:    strings.TrimSpace(q.Status),
		Priority:  strings.TrimSpace(q.Priority),
		SortBy:    strings.TrimSpace(q.SortBy),
		SortOrder: strings.TrimSpace(q.SortOrder),
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

func parseInt(name, val string) (int, error) {
	if val == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, apperrors.NewValidationError(name+" must be a positive integer", map[string]any{name: val})
	}
	return parsed, nil
}
