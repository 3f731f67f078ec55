package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/broker"
)

// HealthHandler serves the liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	redis       *broker.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, redis *broker.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(dto.OK(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}))
}

// Ready reports readiness. Redis is only checked when configured.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := map[string]any{}
	ready := true

	if !h.redis.Enabled() {
		depStatus["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(dto.OK(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		}))
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Failure(
		"one or more dependencies unavailable",
		"DEPENDENCY_UNAVAILABLE",
		depStatus,
	))
}
