package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas Prometheus del motor push. Paquete aparte para evitar ciclos
// de import entre el orquestador y las capas HTTP.

var (
	PushOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_operations_total",
		Help: "Operaciones del motor push por tipo y resultado",
	}, []string{"op", "result"})

	PushOperationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "push_operation_latency_ms",
		Help:    "Latencia de las operaciones del motor push en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"op"})

	PushNotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_notifications_sent_total",
		Help: "Notificaciones push enviadas por resultado del gateway",
	}, []string{"result"})

	OTPValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_validations_total",
		Help: "Validaciones de OTP por resultado",
	}, []string{"result"})
)

// RegisterPush registra las métricas del motor push en el registry dado
// (o en el default si es nil). Re-registrar es un no-op.
func RegisterPush(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		PushOperations, PushOperationLatency, PushNotificationsSent, OTPValidations,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
