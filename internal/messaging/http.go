package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dropDatabas3/authpush/internal/observability/logger"
)

// HTTPGateway postea la notificación al messaging API. El API responde
// 204 No Content cuando encoló el push.
type HTTPGateway struct {
	url       string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// NewHTTP crea el gateway. timeout 0 usa 10 segundos.
func NewHTTP(url, apiKey, apiSecret string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		url:       url,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: timeout},
	}
}

type pushEnvelope struct {
	PushID     string `json:"pushId"`
	DeviceType string `json:"deviceType"`
	Message    string `json:"message"` // JWT firmado
}

func (g *HTTPGateway) SendPushNotification(ctx context.Context, n Notification) bool {
	log := logger.From(ctx).With(logger.Layer("messaging"), logger.Op("send_push"), logger.PushID(n.PushID))

	signed, err := signPayload(n, g.apiSecret)
	if err != nil {
		log.Error("sign payload failed", logger.Err(err))
		return false
	}
	body, err := json.Marshal(pushEnvelope{
		PushID:     n.PushID,
		DeviceType: string(n.DeviceType),
		Message:    signed,
	})
	if err != nil {
		log.Error("marshal envelope failed", logger.Err(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		log.Error("build request failed", logger.Err(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn("messaging api unreachable", logger.Err(err))
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusNoContent {
		log.Warn("messaging api rejected push", logger.Status(resp.StatusCode))
		return false
	}
	log.Debug("push queued")
	return true
}
