package types

import "time"

// PushStatus es el estado de un push authentication request.
// Transiciones monotónicas: PENDING → APPROVED | REJECTED, sin vuelta.
type PushStatus string

const (
	PushPending  PushStatus = "PENDING"
	PushApproved PushStatus = "APPROVED"
	PushRejected PushStatus = "REJECTED"
	// PushNotFound solo se usa como resultado de consulta, nunca se persiste.
	PushNotFound PushStatus = "NOT_FOUND"
)

// RegistrationStatus es el estado de un registration request.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "PENDING"
	RegistrationRegistered RegistrationStatus = "REGISTERED"
	RegistrationRejected   RegistrationStatus = "REJECTED"
	// RegistrationNotFound solo se usa como resultado de consulta.
	RegistrationNotFound RegistrationStatus = "NOT_FOUND"
)

// PushRequest es un push challenge pendiente. Se persiste en el request
// store con clave primaria RequestID e índice secundario PushID.
type PushRequest struct {
	RequestID    string     `json:"request_id"`
	UserID       string     `json:"user_id"`
	PushID       string     `json:"push_id"`
	AccountID    string     `json:"account_id"`
	OTP          string     `json:"otp,omitempty"`
	Challenge    Challenge  `json:"challenge"`
	UserResponse string     `json:"user_response,omitempty"`
	Status       PushStatus `json:"status"`
	RespondedAt  time.Time  `json:"responded_at,omitempty"`
	ValidUntil   time.Time  `json:"valid_until"`
}

func (r PushRequest) PrimaryKey() string   { return r.RequestID }
func (r PushRequest) SecondaryKey() string { return r.PushID }
func (r PushRequest) ExpiresAt() time.Time { return r.ValidUntil }

// Terminal indica si el request llegó a un estado final.
func (r PushRequest) Terminal() bool {
	return r.Status == PushApproved || r.Status == PushRejected
}

// TerminalAt es el momento de la transición terminal (cero si sigue PENDING).
func (r PushRequest) TerminalAt() time.Time { return r.RespondedAt }

// Rejected retorna una copia en estado REJECTED con el timestamp estampado.
func (r PushRequest) Rejected() PushRequest {
	r.Status = PushRejected
	r.RespondedAt = time.Now().UTC()
	return r
}

// RegistrationRequest es un intento de enrolamiento pendiente. Clave
// primaria RequestID; índice secundario el secreto codificado, porque el
// dispositivo que se está enrolando todavía no conoce el request id.
type RegistrationRequest struct {
	AccountID      string             `json:"account_id"`
	RequestID      string             `json:"request_id"`
	Username       string             `json:"username"`
	DeviceName     string             `json:"device_name,omitempty"`
	DeviceType     DeviceType         `json:"device_type,omitempty"`
	PushID         string             `json:"push_id,omitempty"`
	DeviceKeyID    string             `json:"device_key_id,omitempty"`
	EncodedSecret  string             `json:"encoded_secret"`
	ValidationCode int                `json:"validation_code"`
	ScratchCodes   []string           `json:"scratch_codes"`
	StartedAt      time.Time          `json:"started_at"`
	Status         RegistrationStatus `json:"status"`
	RespondedAt    time.Time          `json:"responded_at,omitempty"`
	ValidUntil     time.Time          `json:"valid_until"`
}

func (r RegistrationRequest) PrimaryKey() string   { return r.RequestID }
func (r RegistrationRequest) SecondaryKey() string { return r.EncodedSecret }
func (r RegistrationRequest) ExpiresAt() time.Time { return r.ValidUntil }

func (r RegistrationRequest) Terminal() bool {
	return r.Status == RegistrationRegistered || r.Status == RegistrationRejected
}

func (r RegistrationRequest) TerminalAt() time.Time { return r.RespondedAt }

// Rejected retorna una copia en estado REJECTED con el timestamp estampado.
func (r RegistrationRequest) Rejected() RegistrationRequest {
	r.Status = RegistrationRejected
	r.RespondedAt = time.Now().UTC()
	return r
}
