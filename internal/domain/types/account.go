// Package types define tipos de dominio compartidos entre paquetes.
package types

import "time"

// DeviceType es la plataforma del dispositivo registrado.
type DeviceType string

const (
	DeviceIOS     DeviceType = "IOS"
	DeviceAndroid DeviceType = "ANDROID"
)

// IsValid retorna true si el tipo de dispositivo es uno de los soportados.
func (d DeviceType) IsValid() bool {
	switch d {
	case DeviceIOS, DeviceAndroid:
		return true
	}
	return false
}

// Account representa un dispositivo/secreto enrolado para un usuario.
//
// Invariante: fuera del boundary del account repository, Secret y
// ScratchCodes circulan solo en su forma cifrada; el decode ocurre
// únicamente para validar.
type Account struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Name           string     `json:"name"`
	Secret         string     `json:"secret"`
	ValidationCode int        `json:"validation_code"`
	ScratchCodes   []string   `json:"scratch_codes"`
	DeviceType     DeviceType `json:"device_type,omitempty"`
	PushID         string     `json:"push_id,omitempty"`
	DeviceKeyID    string     `json:"device_key_id,omitempty"`
	RegisteredAt   time.Time  `json:"registered_at"`
}

// PushCapable indica si la cuenta puede recibir push challenges.
func (a Account) PushCapable() bool {
	return a.DeviceKeyID != ""
}

// Clone retorna una copia profunda (los scratch codes mutan al consumirse).
func (a Account) Clone() Account {
	out := a
	out.ScratchCodes = make([]string, len(a.ScratchCodes))
	copy(out.ScratchCodes, a.ScratchCodes)
	return out
}
