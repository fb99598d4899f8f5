// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/authpush/internal/http/controllers"
	apperrors "github.com/dropDatabas3/authpush/internal/http/errors"
	mw "github.com/dropDatabas3/authpush/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Push *controllers.PushController
	// MetricsHandler sirve /metrics; si es nil se usa promhttp.Handler().
	MetricsHandler http.Handler
}

// New construye el router con el middleware chain estándar.
// Orden: Recover → RequestID → SecurityHeaders → NoStore → Logging.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithLogging(),
	)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apperrors.WriteError(w, apperrors.ErrMethodNotAllowed)
	})

	c := deps.Push

	r.Route("/push", func(r chi.Router) {
		r.Post("/initiate", c.Initiate)
		r.Get("/check/login", c.CheckLogin)
		r.Get("/check/registration", c.CheckRegistration)
		r.Post("/submit", c.Submit)
		r.Post("/validate", c.Submit)
		r.Post("/terminate", c.Terminate)
		r.Post("/push-id-change", c.PushIDChange)

		r.Post("/registration", c.CreateRegistration)
		r.Post("/registration/device", c.RegisterDevice)
		r.Post("/registration/finalize", c.FinalizeRegistration)
	})

	r.Post("/otp/validate", c.ValidateToken)
	r.Post("/otp/credential", c.ValidateCredential)
	r.Post("/otp/credentials", c.CreateCredentials)
	r.Get("/healthz", c.Health)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return r
}
