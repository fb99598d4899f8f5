package messaging

import (
	"context"

	"github.com/dropDatabas3/authpush/internal/observability/logger"
)

// NoopGateway no envía nada y reporta éxito. Para test mode, donde el
// flujo se ejercita sin dispositivos reales.
type NoopGateway struct{}

func (NoopGateway) SendPushNotification(ctx context.Context, n Notification) bool {
	logger.From(ctx).Debug("push suppressed (test mode)",
		logger.Layer("messaging"), logger.PushID(n.PushID))
	return true
}
