package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

// Dependencies holds what the background workers subscribe with.
type Dependencies struct {
	Dispatcher    events.Dispatcher
	Notifications *service.NotificationService
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// Start attaches the notification worker and the queue monitor to the dispatcher.
func Start(deps Dependencies) *QueueMonitor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	StartNotificationWorker(deps.Notifications, logger.Named("notifications"))
	return StartQueueMonitor(deps.Dispatcher, deps.Metrics, logger.Named("queue-monitor"))
}

// StartNotificationWorker subscribes the notification handlers. It reports
// false when there is no service or notification jobs are switched off.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifications == nil || !notifications.RegisterHandlers() {
		logger.Info("notification worker disabled")
		return false
	}
	logger.Info("notification worker started")
	return true
}
