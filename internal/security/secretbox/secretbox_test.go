package secretbox

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"
)

func setTestKey(t *testing.T, seed byte) {
	t.Helper()
	UnsafeResetForTests()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	os.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString(raw))
	t.Cleanup(func() {
		os.Unsetenv("SECRETBOX_MASTER_KEY")
		UnsafeResetForTests()
	})
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	// Sin t.Parallel() por el estado global del paquete
	setTestKey(t, 1)

	msg := "JBSWY3DPEHPK3PXP — secreto de prueba"
	ct, err := Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	pt, err := Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	setTestKey(t, 100)

	ct, err := Encrypt("top secret")
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("unexpected ct format")
	}
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0x01 // flip
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := Decrypt(corrupted); err == nil {
		t.Fatalf("expected auth error, got nil")
	}
}

func TestIsReady_LoadsKeyBeforeFirstUse(t *testing.T) {
	// El arranque consulta IsReady antes de cifrar nada: tiene que
	// disparar la carga de la clave por sí mismo.
	setTestKey(t, 50)

	if !IsReady() {
		t.Fatalf("IsReady() = false con SECRETBOX_MASTER_KEY válida")
	}
	if _, err := Encrypt("x"); err != nil {
		t.Fatalf("Encrypt tras IsReady err: %v", err)
	}
}

func TestIsReady_FalseWithoutKey(t *testing.T) {
	UnsafeResetForTests()
	os.Unsetenv("SECRETBOX_MASTER_KEY")
	t.Cleanup(UnsafeResetForTests)

	if IsReady() {
		t.Fatalf("IsReady() = true sin clave")
	}
}

func TestEncrypt_ErrorWhenNoKey(t *testing.T) {
	UnsafeResetForTests()
	os.Unsetenv("SECRETBOX_MASTER_KEY")
	t.Cleanup(UnsafeResetForTests)

	if _, err := Encrypt("x"); err == nil {
		t.Fatalf("expected error when key missing")
	}
}
