package repository

import (
	"context"

	"github.com/dropDatabas3/authpush/internal/domain/types"
)

// AccountRepository define operaciones sobre cuentas de autenticador.
// Un username puede tener varias cuentas (varios dispositivos enrolados).
type AccountRepository interface {
	// FindByUsername obtiene todas las cuentas de un usuario.
	// Retorna slice vacío si no tiene ninguna.
	FindByUsername(ctx context.Context, username string) ([]types.Account, error)

	// FindByPushID obtiene la cuenta asociada a un push id.
	// Retorna ErrNotFound si no existe.
	FindByPushID(ctx context.Context, pushID string) (*types.Account, error)

	// FindByDeviceKeyID obtiene la cuenta asociada a una device key.
	// Retorna ErrNotFound si no existe.
	FindByDeviceKeyID(ctx context.Context, deviceKeyID string) (*types.Account, error)

	// Create crea una cuenta vacía para un username y retorna su id.
	Create(ctx context.Context, username string) (*types.Account, error)

	// Update persiste los cambios de una cuenta existente.
	// Retorna ErrNotFound si la cuenta no existe.
	Update(ctx context.Context, account *types.Account) error

	// Delete elimina una cuenta. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, id string) error

	// Ping verifica la conexión con el backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close() error
}
