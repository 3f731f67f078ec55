package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/observability"
)

// ServerConfig bundles everything NewServer needs.
type ServerConfig struct {
	AppName     string
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Middlewares MiddlewareConfig
	Routes      RouteConfig
}

// NewServer builds the Fiber app with middlewares and routes registered.
func NewServer(cfg ServerConfig) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Routes.Metrics == nil && cfg.Metrics != nil {
		cfg.Routes.Metrics = cfg.Metrics.Handler()
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, cfg.Metrics),
	})
	RegisterMiddlewares(app, logger, cfg.Metrics, cfg.Middlewares)
	RegisterRoutes(app, cfg.Routes)
	return app
}
