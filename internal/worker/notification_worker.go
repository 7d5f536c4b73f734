package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/service"
)

// StartNotificationWorker subscribes the notification handlers, then posts the
// SME cards of open tickets that never got one. Backfill failures are logged;
// the service starts regardless.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, backfillLimit int, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notificationService.RegisterHandlers()

	posted, err := notificationService.PostMissingCards(ctx, backfillLimit)
	if err != nil {
		logger.Warn("ticket card backfill incomplete", zap.Int("posted", posted), zap.Error(err))
		return
	}
	if posted > 0 {
		logger.Info("posted missing ticket cards", zap.Int("posted", posted))
	}
}
