// Package otp implements the one-time-password engine: secret generation,
// HOTP/TOTP code computation (RFC 4226 / RFC 6238) and scratch codes.
// The engine is stateless; all persistence happens in the caller.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
	"time"
)

// KeyRepresentation es el formato textual del secreto.
type KeyRepresentation string

const (
	// Base32 RFC 3548 sin padding. Default, compatible con apps authenticator.
	Base32 KeyRepresentation = "base32"
	// Base64 estándar con padding.
	Base64 KeyRepresentation = "base64"
)

const (
	scratchCodeDigits   = 8
	scratchCodeModulus  = 100000000 // 10^scratchCodeDigits
	bytesPerScratchCode = 4
)

// Config controla los parámetros del engine.
type Config struct {
	// SecretKeySize en bits. Default 160.
	SecretKeySize int
	// CodeDigits del código TOTP. Default 6.
	CodeDigits int
	// WindowSize tolera el desfase de reloj entre server y dispositivo:
	// se aceptan códigos de ventanas adyacentes. Default 3.
	WindowSize int
	// TimeStep del contador TOTP. Default 30s.
	TimeStep time.Duration
	// HashAlgorithm del HMAC: "sha1" o "sha256". Default sha256.
	HashAlgorithm string
	// Representation del secreto: base32 o base64. Default base32.
	Representation KeyRepresentation
	// ScratchCodeCount cantidad de códigos de respaldo. Default 5.
	ScratchCodeCount int
}

func (c Config) withDefaults() Config {
	if c.SecretKeySize <= 0 {
		c.SecretKeySize = 160
	}
	if c.CodeDigits <= 0 {
		c.CodeDigits = 6
	}
	if c.WindowSize <= 0 {
		c.WindowSize = 3
	}
	if c.TimeStep <= 0 {
		c.TimeStep = 30 * time.Second
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = "sha256"
	}
	if c.Representation == "" {
		c.Representation = Base32
	}
	if c.ScratchCodeCount <= 0 {
		c.ScratchCodeCount = 5
	}
	return c
}

// Key agrupa las credenciales recién generadas para una cuenta.
type Key struct {
	// Secret en su representación textual configurada.
	Secret string
	// ValidationCode es el código HOTP en counter=0, usado para verificar
	// que el dispositivo derivó el mismo secreto.
	ValidationCode int
	// ScratchCodes de respaldo, un solo uso cada uno.
	ScratchCodes []string
}

// Engine computa y valida códigos OTP. Stateless y seguro para uso concurrente.
type Engine struct {
	cfg     Config
	modulus int
	newHash func() hash.Hash
	b32     *base32.Encoding
}

// New crea un Engine. Un algoritmo o representación desconocidos son errores
// de configuración fatales, nunca se reintenta.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	var hf func() hash.Hash
	switch strings.ToLower(cfg.HashAlgorithm) {
	case "sha1":
		hf = sha1.New
	case "sha256":
		hf = sha256.New
	default:
		return nil, fmt.Errorf("otp: unsupported hmac algorithm %q", cfg.HashAlgorithm)
	}

	switch cfg.Representation {
	case Base32, Base64:
	default:
		return nil, fmt.Errorf("otp: unsupported key representation %q", cfg.Representation)
	}

	modulus := 1
	for i := 0; i < cfg.CodeDigits; i++ {
		modulus *= 10
	}

	return &Engine{
		cfg:     cfg,
		modulus: modulus,
		newHash: hf,
		b32:     base32.StdEncoding.WithPadding(base32.NoPadding),
	}, nil
}

// GenerateSecret retorna bytes aleatorios del tamaño configurado.
func (e *Engine) GenerateSecret() ([]byte, error) {
	secret := make([]byte, e.cfg.SecretKeySize/8)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("otp: generate secret: %w", err)
	}
	return secret, nil
}

// EncodeSecret codifica el secreto según la representación configurada.
func (e *Engine) EncodeSecret(secret []byte) string {
	switch e.cfg.Representation {
	case Base64:
		return base64.StdEncoding.EncodeToString(secret)
	default:
		return e.b32.EncodeToString(secret)
	}
}

// DecodeSecret es la inversa de EncodeSecret.
func (e *Engine) DecodeSecret(secret string) ([]byte, error) {
	switch e.cfg.Representation {
	case Base64:
		raw, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("otp: decode secret: %w", err)
		}
		return raw, nil
	default:
		raw, err := e.b32.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
		if err != nil {
			return nil, fmt.Errorf("otp: decode secret: %w", err)
		}
		return raw, nil
	}
}

// codeAt computa HOTP(K, C) con truncación dinámica (RFC 4226, 5.3).
func (e *Engine) codeAt(key []byte, counter int64) int {
	var msg [8]byte
	v := counter
	for i := 7; i >= 0; i-- {
		msg[i] = byte(v & 0xff)
		v >>= 8
	}

	m := hmac.New(e.newHash, key)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)

	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 |
		int(sum[offset+1])<<16 |
		int(sum[offset+2])<<8 |
		int(sum[offset+3])
	return bin % e.modulus
}

// ValidationCode es el código en counter=0 (el epoch UNIX).
func (e *Engine) ValidationCode(secret []byte) int {
	return e.codeAt(secret, 0)
}

// CurrentCode computa el código TOTP para el instante t.
func (e *Engine) CurrentCode(secret string, t time.Time) (int, error) {
	raw, err := e.DecodeSecret(secret)
	if err != nil {
		return 0, err
	}
	return e.codeAt(raw, e.timeWindow(t)), nil
}

// CheckCode valida un código contra el secreto en una ventana de tiempo
// alrededor de t. La ventana es la del source original: para windowSize w
// se prueban los contadores [-(w-1)/2, w/2] relativos al actual.
func (e *Engine) CheckCode(secret string, code int, t time.Time) (bool, error) {
	raw, err := e.DecodeSecret(secret)
	if err != nil {
		return false, err
	}

	window := e.cfg.WindowSize
	current := e.timeWindow(t)
	for i := -((window - 1) / 2); i <= window/2; i++ {
		if e.codeAt(raw, current+int64(i)) == code {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) timeWindow(t time.Time) int64 {
	return t.Unix() / int64(e.cfg.TimeStep/time.Second)
}

// GenerateScratchCodes genera los códigos de respaldo configurados.
// Cada código tiene exactamente scratchCodeDigits dígitos: se rechazan y
// redibujan valores fuera del decil superior del espacio, así nunca hay
// ceros a la izquierda.
func (e *Engine) GenerateScratchCodes() ([]string, error) {
	codes := make([]string, 0, e.cfg.ScratchCodeCount)
	for len(codes) < e.cfg.ScratchCodeCount {
		code, err := generateScratchCode()
		if err != nil {
			return nil, err
		}
		if code >= 0 {
			codes = append(codes, fmt.Sprintf("%d", code))
		}
	}
	return codes, nil
}

// generateScratchCode retorna -1 si el valor cae fuera del decil superior.
func generateScratchCode() (int, error) {
	buf := make([]byte, bytesPerScratchCode)
	if _, err := rand.Read(buf); err != nil {
		return 0, fmt.Errorf("otp: generate scratch code: %w", err)
	}

	code := 0
	for _, b := range buf {
		code = (code << 8) + int(b)
	}
	code = (code & 0x7FFFFFFF) % scratchCodeModulus

	if code < scratchCodeModulus/10 {
		return -1, nil
	}
	return code, nil
}

// CreateCredentials genera un set completo: secreto codificado, validation
// code en counter=0 y scratch codes.
func (e *Engine) CreateCredentials() (*Key, error) {
	secret, err := e.GenerateSecret()
	if err != nil {
		return nil, err
	}

	scratch, err := e.GenerateScratchCodes()
	if err != nil {
		return nil, err
	}

	return &Key{
		Secret:         e.EncodeSecret(secret),
		ValidationCode: e.ValidationCode(secret),
		ScratchCodes:   scratch,
	}, nil
}
