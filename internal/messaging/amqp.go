package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dropDatabas3/authpush/internal/observability/logger"
)

// AMQPGateway publica la notificación en una cola para que un worker la
// entregue. Alternativa al gateway HTTP cuando el messaging API consume
// de RabbitMQ.
type AMQPGateway struct {
	url       string
	queue     string
	apiSecret string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQP conecta al broker y declara la cola (durable).
func NewAMQP(url, queue, apiSecret string) (*AMQPGateway, error) {
	g := &AMQPGateway{url: url, queue: queue, apiSecret: apiSecret}
	if err := g.connect(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *AMQPGateway) connect() error {
	conn, err := amqp.Dial(g.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(g.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	g.conn, g.ch = conn, ch
	return nil
}

// channel retorna el canal actual, reconectando si la conexión se cayó.
func (g *AMQPGateway) channel() (*amqp.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil || g.conn.IsClosed() {
		if err := g.connect(); err != nil {
			return nil, err
		}
	}
	return g.ch, nil
}

func (g *AMQPGateway) SendPushNotification(ctx context.Context, n Notification) bool {
	log := logger.From(ctx).With(logger.Layer("messaging"), logger.Op("publish_push"), logger.PushID(n.PushID))

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

	ch, err := g.channel()
	if err != nil {
		log.Warn("broker unreachable", logger.Err(err))
		return false
	}
	err = ch.PublishWithContext(ctx, "", g.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now(),
		CorrelationId: n.CorrelationID,
		Expiration:    amqpExpiration(n.ValidUntil),
		Body:          body,
	})
	if err != nil {
		log.Warn("publish failed", logger.Err(err))
		return false
	}
	log.Debug("push published")
	return true
}

// amqpExpiration expresa el TTL del mensaje en milisegundos, como lo
// espera RabbitMQ. Un push que ya venció no tiene sentido entregarlo.
func amqpExpiration(validUntil time.Time) string {
	ms := time.Until(validUntil).Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	return strconv.FormatInt(ms, 10)
}

func (g *AMQPGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ch != nil {
		_ = g.ch.Close()
	}
	if g.conn != nil {
		return g.conn.Close()
	}
	return nil
}
