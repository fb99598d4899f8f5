// Package secretbox cifra secretos en reposo con NaCl secretbox
// (XSalsa20-Poly1305). La clave maestra viene de SECRETBOX_MASTER_KEY
// (base64, 32 bytes). El resto del sistema consume este paquete como una
// capacidad opaca encode/decode.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretBoxEnvVar   = "SECRETBOX_MASTER_KEY"
	nonceSize         = 24 // NaCl secretbox nonce
	requiredKeyLength = 32
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	masterKey     [requiredKeyLength]byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// ensureLoaded carga la clave maestra desde SECRETBOX_MASTER_KEY una sola vez.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(secretBoxEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s no seteada; genere una clave con: openssl rand -base64 32", secretBoxEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", secretBoxEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s debe decodificar a %d bytes, obtuvo %d", secretBoxEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		copy(masterKey[:], k)
		mu.Unlock()
	})
	return loadErr
}

// IsReady carga la clave si todavía no se intentó y reporta si está
// disponible. Se puede llamar en el arranque, antes de cualquier
// Encrypt/Decrypt.
func IsReady() bool {
	return ensureLoaded() == nil
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, &key)

	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt descifra un valor producido por Encrypt. Falla si el ciphertext
// fue alterado (Poly1305 auth).
func Decrypt(cipherText string) (string, error) {
	if err := ensureLoaded(); err != nil {
		return "", err
	}

	parts := strings.SplitN(cipherText, sep, 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("secretbox: formato inválido")
	}

	nonceBytes, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonceBytes) != nonceSize {
		return "", fmt.Errorf("secretbox: nonce inválido")
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("secretbox: ciphertext inválido")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], nonceBytes)

	mu.RLock()
	key := masterKey
	mu.RUnlock()

	plain, ok := secretbox.Open(nil, ct, &nonce, &key)
	if !ok {
		return "", fmt.Errorf("secretbox: autenticación fallida")
	}
	return string(plain), nil
}

// UnsafeResetForTests resetea el estado global. Solo para tests.
func UnsafeResetForTests() {
	mu.Lock()
	defer mu.Unlock()
	masterKeyOnce = sync.Once{}
	masterKey = [requiredKeyLength]byte{}
	loadErr = nil
}
