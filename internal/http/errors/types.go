package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Error original (causa), útil para logs, no se expone al cliente
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// FromError intenta convertir un error genérico en un AppError.
// Si no es un AppError, devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail agrega detalles adicionales al error (útil para validaciones)
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// Errores predefinidos del API push.
var (
	// 400
	ErrBadRequest        = New(http.StatusBadRequest, "bad_request", "Malformed request body or parameters")
	ErrInvalidDeviceType = New(http.StatusBadRequest, "invalid_device_type", "Device type must be IOS or ANDROID")
	ErrInvalidOTPFormat  = New(http.StatusBadRequest, "invalid_otp_format", "OTP must be a numeric code")

	// 401
	ErrInvalidOTP               = New(http.StatusUnauthorized, "invalid_otp", "OTP validation failed")
	ErrInvalidChallengeResponse = New(http.StatusUnauthorized, "invalid_challenge_response", "Challenge response mismatch")

	// 404
	ErrDeviceNotFound  = New(http.StatusNotFound, "device_not_found", "No registered device matches the request")
	ErrRequestNotFound = New(http.StatusNotFound, "request_not_found", "No pending request matches the request")

	// 405
	ErrMethodNotAllowed = New(http.StatusMethodNotAllowed, "method_not_allowed", "HTTP method not allowed on this resource")

	// 429
	ErrTooManyRequests = New(http.StatusTooManyRequests, "too_many_requests", "Push initiation rate limit exceeded")

	// 500
	ErrInternalServerError = New(http.StatusInternalServerError, "internal_error", "Internal server error")
)
