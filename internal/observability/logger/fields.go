package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/authpush/internal/util"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request HTTP.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Username crea un campo para el nombre de usuario.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// PushID crea un campo para el push id del dispositivo. El valor se
// enmascara: el push id es una credencial de entrega y no debe quedar
// completo en los logs.
func PushID(v string) zap.Field {
	return zap.String("push_id", util.MaskToken(v))
}

// DeviceKeyID crea un campo para el identificador del dispositivo.
func DeviceKeyID(v string) zap.Field {
	return zap.String("device_key_id", v)
}

// AuthRequestID crea un campo para el ID de un push/registration request.
func AuthRequestID(v string) zap.Field {
	return zap.String("auth_request_id", v)
}

// ChallengeKind crea un campo para el tipo de challenge.
func ChallengeKind(v string) zap.Field {
	return zap.String("challenge_kind", v)
}

// RequestStatus crea un campo para el estado de un request pendiente.
func RequestStatus(v string) zap.Field {
	return zap.String("request_status", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer crea un campo para la capa (controller, service, store).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// CAMPOS GENÉRICOS
// =================================================================================

// Count crea un campo para un conteo.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// Key crea un campo genérico para una clave.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
