package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// QueueHandler exposes the simulated job queue.
type QueueHandler struct {
	service *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(queueService *service.QueueService) *QueueHandler {
	return &QueueHandler{service: queueService}
}

// ListJobs GET /queue.
func (h *QueueHandler) ListJobs(c *fiber.Ctx) error {
	return c.JSON(dto.List(h.service.ListJobs(c.UserContext(), c.Query("status"))))
}

// Enqueue POST /queue.
func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	var req dto.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	job, err := h.service.Enqueue(c.UserContext(), req.Type, req.Data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(job))
}

// GetJob GET /queue/:id.
func (h *QueueHandler) GetJob(c *fiber.Ctx) error {
	job, err := h.service.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(job))
}

// ClearCompleted DELETE /queue.
func (h *QueueHandler) ClearCompleted(c *fiber.Ctx) error {
	removed := h.service.ClearCompleted(c.UserContext())
	return c.JSON(dto.Message(
		fmt.Sprintf("Cleared %d completed jobs", removed),
		dto.ClearJobsResponse{Removed: removed},
	))
}

// Stats GET /admin/queues.
func (h *QueueHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(dto.OK(h.service.Stats(c.UserContext())))
}
