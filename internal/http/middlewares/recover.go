package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"

	"github.com/dropDatabas3/authpush/internal/http/errors"
	"github.com/dropDatabas3/authpush/internal/observability/logger"
)

// WithRecover captura panics y devuelve un error 500 en lugar de crashear.
// Si Sentry está inicializado, el panic se reporta con el stack.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					sentry.WithScope(func(scope *sentry.Scope) {
						scope.SetExtra("panic", rec)
						scope.SetExtra("stack", string(debug.Stack()))
						scope.SetExtra("path", r.URL.Path)
						sentry.CaptureMessage("panic in request")
					})

					log := logger.From(r.Context())
					log.Error("panic recovered",
						logger.Op("recover"),
						logger.Path(r.URL.Path),
						logger.Any("panic", rec),
					)

					errors.WriteError(w, errors.ErrInternalServerError.WithDetail("panic recovered"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
