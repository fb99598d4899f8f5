// Package dto define los cuerpos de request/response del API push.
package dto

import "time"

// InitiateRequest inicia una push authentication para un usuario.
type InitiateRequest struct {
	Username string `json:"username"`
}

// InitiateResponse es el resultado de iniciar.
type InitiateResponse struct {
	RequestID  string    `json:"request_id"`
	PushID     string    `json:"push_id"`
	Prompt     string    `json:"prompt,omitempty"`
	ValidUntil time.Time `json:"valid_until"`
}

// StatusResponse reporta el estado de un request (push o registration).
type StatusResponse struct {
	Status string `json:"status"`
}

// SubmitRequest es la respuesta del dispositivo (o la validación del host).
type SubmitRequest struct {
	PushID            string `json:"push_id"`
	OTP               string `json:"otp"`
	ChallengeResponse string `json:"challenge_response"`
}

// TerminateRequest cancela una push authentication pendiente.
type TerminateRequest struct {
	PushID string `json:"push_id"`
	OTP    string `json:"otp"`
}

// PushIDChangeRequest rota el push token de un dispositivo.
type PushIDChangeRequest struct {
	DeviceKeyID string `json:"device_key_id"`
	NewPushID   string `json:"new_push_id"`
	OTP         string `json:"otp"`
}

// CreateRegistrationRequest arranca un enrolamiento.
type CreateRegistrationRequest struct {
	Username string `json:"username"`
}

// CreateRegistrationResponse es lo que se presenta al usuario (QR, códigos).
type CreateRegistrationResponse struct {
	RequestID      string    `json:"request_id"`
	Secret         string    `json:"secret"`
	ValidationCode int       `json:"validation_code"`
	ScratchCodes   []string  `json:"scratch_codes"`
	AuthURL        string    `json:"auth_url"`
	ValidUntil     time.Time `json:"valid_until"`
}

// CreateCredentialsResponse es material OTP fresco, sin registro asociado.
type CreateCredentialsResponse struct {
	Secret         string   `json:"secret"`
	ValidationCode int      `json:"validation_code"`
	ScratchCodes   []string `json:"scratch_codes"`
}

// RegisterDeviceRequest es lo que el dispositivo envía al enrolarse.
type RegisterDeviceRequest struct {
	EncodedSecret string `json:"encoded_secret"`
	DeviceName    string `json:"device_name"`
	DeviceType    string `json:"device_type"`
	PushID        string `json:"push_id"`
	DeviceKeyID   string `json:"device_key_id"`
	InitialCode   string `json:"initial_code"`
}

// FinalizeRegistrationRequest promueve un registro completado a cuenta.
type FinalizeRegistrationRequest struct {
	RequestID string `json:"request_id"`
}

// FinalizeRegistrationResponse confirma la cuenta creada.
type FinalizeRegistrationResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// ValidateTokenRequest valida un OTP o scratch code de un usuario.
type ValidateTokenRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// ResultResponse es el outcome genérico de las operaciones validantes.
type ResultResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reporta el estado del servicio y sus backends.
type HealthResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends,omitempty"`
}
