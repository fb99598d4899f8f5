// Package observability agrupa integración con servicios de telemetría.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry inicializa el cliente de Sentry. Con DSN vacío es un no-op.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry drena eventos pendientes antes de salir.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
