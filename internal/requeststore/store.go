// Package requeststore provee almacenamiento TTL'd para requests
// transitorios (push auth y registration) con soporte multi-backend.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing)
//   - Redis (distribuido, para producción)
//
// Cada record tiene clave primaria (request id) e índice secundario
// (push id o secreto codificado). El store garantiza exclusión mutua por
// clave secundaria para las operaciones que leen-modifican-escriben.
package requeststore

import (
	"context"
	"errors"
	"time"
)

const (
	// ExpiryGrace es el margen añadido al TTL de cada record para que un
	// lookup justo en el borde de expiración todavía lo encuentre.
	ExpiryGrace = 2 * time.Second

	// DefaultTerminalGrace es cuánto sobrevive un record en estado final
	// para que el browser pueda consultar el resultado antes de purgarlo.
	DefaultTerminalGrace = 3 * time.Minute
)

var (
	// ErrClosed indica que el store ya fue cerrado.
	ErrClosed = errors.New("requeststore: store closed")

	// ErrLockTimeout indica que no se pudo adquirir el lock de la clave
	// secundaria dentro del deadline del contexto.
	ErrLockTimeout = errors.New("requeststore: lock acquisition timed out")
)

// Record es lo que el store sabe de cada entrada. T es el tipo concreto
// del record, para que Rejected retorne el mismo tipo que recibió.
type Record[T any] interface {
	// PrimaryKey identifica el record (request id).
	PrimaryKey() string

	// SecondaryKey es el índice alterno (push id, secreto codificado).
	SecondaryKey() string

	// ExpiresAt es el instante a partir del cual el record no es válido.
	ExpiresAt() time.Time

	// Terminal indica si el record llegó a un estado final.
	Terminal() bool

	// TerminalAt es el momento de la transición terminal (cero si no aplica).
	TerminalAt() time.Time

	// Rejected retorna una copia del record en estado rechazado.
	Rejected() T
}

// Store define las operaciones del request store.
type Store[T Record[T]] interface {
	// Put guarda un record nuevo y registra su índice secundario.
	Put(ctx context.Context, rec T) error

	// Get obtiene un record por clave primaria.
	Get(ctx context.Context, id string) (T, bool, error)

	// GetBySecondaryKey obtiene un record por su índice secundario.
	GetBySecondaryKey(ctx context.Context, key string) (T, bool, error)

	// Update reemplaza un record existente. Si la clave secundaria cambió,
	// el índice viejo se elimina. Si el record pasó a estado terminal, su
	// TTL se acorta al grace terminal.
	Update(ctx context.Context, rec T) error

	// Remove elimina un record y su índice secundario.
	Remove(ctx context.Context, id string) error

	// Contains verifica si existe un record con esa clave primaria.
	Contains(ctx context.Context, id string) (bool, error)

	// WithSecondaryLock ejecuta fn con el lock de la clave secundaria
	// tomado. Serializa read-modify-write sobre el mismo dispositivo.
	WithSecondaryLock(ctx context.Context, key string, fn func() error) error

	// Sweep purga records terminales pasados de grace e índices huérfanos.
	// Retorna cuántas entradas eliminó.
	Sweep(ctx context.Context) (int, error)

	// Close libera recursos del backend.
	Close() error
}

// Sweeper es lo que el Cleaner necesita de un store.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ttlFor calcula el TTL de un record según su estado.
func ttlFor[T Record[T]](rec T, terminalGrace time.Duration, now time.Time) time.Duration {
	if rec.Terminal() {
		return terminalGrace
	}
	ttl := rec.ExpiresAt().Sub(now) + ExpiryGrace
	if ttl < ExpiryGrace {
		ttl = ExpiryGrace
	}
	return ttl
}
