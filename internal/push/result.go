// Package push implementa el orquestador de push challenges: registration,
// push authentication y validación de tokens OTP.
package push

// Code clasifica el resultado de una operación del orquestador.
type Code string

const (
	CodeOK                       Code = "OK"
	CodeDeviceNotFound           Code = "DEVICE_NOT_FOUND"
	CodeRequestNotFound          Code = "REQUEST_NOT_FOUND"
	CodeInvalidOTPFormat         Code = "INVALID_OTP_FORMAT"
	CodeInvalidOTP               Code = "INVALID_OTP"
	CodeInvalidChallengeResponse Code = "INVALID_CHALLENGE_RESPONSE"
	CodeInternalError            Code = "INTERNAL_ERROR"
)

// ValidationResult es el outcome de toda operación validante. El
// orquestador nunca deja escapar errores de colaboradores: los clasifica
// aquí y el llamador decide el mapping HTTP.
type ValidationResult struct {
	Success bool   `json:"success"`
	Code    Code   `json:"code"`
	Message string `json:"message,omitempty"`
}

func resultOK() ValidationResult {
	return ValidationResult{Success: true, Code: CodeOK}
}

func resultFail(code Code, msg string) ValidationResult {
	return ValidationResult{Success: false, Code: code, Message: msg}
}
