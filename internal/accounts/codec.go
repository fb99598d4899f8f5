// Package accounts implementa el AccountRepository con backends memory y
// Postgres, más un decorador que cifra el material sensible en reposo.
package accounts

import (
	"context"
	"strings"

	"github.com/dropDatabas3/authpush/internal/domain/repository"
	"github.com/dropDatabas3/authpush/internal/domain/types"
	"github.com/dropDatabas3/authpush/internal/security/secretbox"
)

// Cipher cifra y descifra strings. secretbox lo satisface.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(cipherText string) (string, error)
}

// SecretboxCipher adapta el paquete secretbox al interface Cipher.
type SecretboxCipher struct{}

func (SecretboxCipher) Encrypt(p string) (string, error) { return secretbox.Encrypt(p) }
func (SecretboxCipher) Decrypt(c string) (string, error) { return secretbox.Decrypt(c) }

// encryptedRepo decora un AccountRepository cifrando el secreto y los
// scratch codes antes de persistir y descifrándolos al leer.
type encryptedRepo struct {
	inner  repository.AccountRepository
	cipher Cipher
}

// NewEncrypted envuelve un repositorio con cifrado en reposo.
func NewEncrypted(inner repository.AccountRepository, cipher Cipher) repository.AccountRepository {
	return &encryptedRepo{inner: inner, cipher: cipher}
}

// NormalizeUsername canonicaliza el username para lookup y persistencia.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func (r *encryptedRepo) encode(a *types.Account) (*types.Account, error) {
	c := a.Clone()
	out := &c
	out.Username = NormalizeUsername(out.Username)
	if out.Secret != "" {
		enc, err := r.cipher.Encrypt(out.Secret)
		if err != nil {
			return nil, err
		}
		out.Secret = enc
	}
	for i, sc := range out.ScratchCodes {
		enc, err := r.cipher.Encrypt(sc)
		if err != nil {
			return nil, err
		}
		out.ScratchCodes[i] = enc
	}
	return out, nil
}

func (r *encryptedRepo) decode(a *types.Account) *types.Account {
	if a == nil {
		return nil
	}
	c := a.Clone()
	out := &c
	if out.Secret != "" {
		if dec, err := r.cipher.Decrypt(out.Secret); err == nil {
			out.Secret = dec
		}
	}
	// Lenient con scratch codes: los que no descifren se asumen en claro
	// (cuentas creadas antes de habilitar el cifrado).
	for i, sc := range out.ScratchCodes {
		if dec, err := r.cipher.Decrypt(sc); err == nil {
			out.ScratchCodes[i] = dec
		}
	}
	return out
}

func (r *encryptedRepo) FindByUsername(ctx context.Context, username string) ([]types.Account, error) {
	accs, err := r.inner.FindByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	out := make([]types.Account, 0, len(accs))
	for i := range accs {
		out = append(out, *r.decode(&accs[i]))
	}
	return out, nil
}

func (r *encryptedRepo) FindByPushID(ctx context.Context, pushID string) (*types.Account, error) {
	a, err := r.inner.FindByPushID(ctx, pushID)
	if err != nil {
		return nil, err
	}
	return r.decode(a), nil
}

func (r *encryptedRepo) FindByDeviceKeyID(ctx context.Context, deviceKeyID string) (*types.Account, error) {
	a, err := r.inner.FindByDeviceKeyID(ctx, deviceKeyID)
	if err != nil {
		return nil, err
	}
	return r.decode(a), nil
}

func (r *encryptedRepo) Create(ctx context.Context, username string) (*types.Account, error) {
	return r.inner.Create(ctx, NormalizeUsername(username))
}

func (r *encryptedRepo) Update(ctx context.Context, account *types.Account) error {
	enc, err := r.encode(account)
	if err != nil {
		return err
	}
	return r.inner.Update(ctx, enc)
}

func (r *encryptedRepo) Delete(ctx context.Context, id string) error {
	return r.inner.Delete(ctx, id)
}

func (r *encryptedRepo) Ping(ctx context.Context) error { return r.inner.Ping(ctx) }
func (r *encryptedRepo) Close() error                   { return r.inner.Close() }
