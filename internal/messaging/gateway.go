// Package messaging envía push notifications a los dispositivos
// registrados. Soporta un gateway HTTP, un publisher AMQP y un no-op
// para test mode.
package messaging

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/authpush/internal/domain/types"
)

// Notification es lo que viaja al dispositivo.
type Notification struct {
	PushID        string
	DeviceType    types.DeviceType
	Kind          types.ChallengeKind
	Payload       string // dataForChallenge: vacío salvo CHOOSE
	KeyID         string
	CorrelationID string // request id, para el callback del dispositivo
	CallbackURL   string
	ValidUntil    time.Time
}

// Gateway entrega la notificación. Retorna false si el envío falló; el
// orquestador decide si eso aborta la operación.
type Gateway interface {
	SendPushNotification(ctx context.Context, n Notification) bool
}

// signPayload serializa la notificación como JWT compacto HS256 para que
// el dispositivo pueda verificar el origen con el API secret compartido.
func signPayload(n Notification, secret string) (string, error) {
	claims := jwt.MapClaims{
		"pushType":         n.Kind.Wire(),
		"dataForChallenge": n.Payload,
		"keyId":            n.KeyID,
		"correlationId":    n.CorrelationID,
		"callback":         n.CallbackURL,
		"validUntil":       n.ValidUntil.UTC().Format(time.RFC3339),
		"iat":              time.Now().Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}
