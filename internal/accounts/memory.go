package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/authpush/internal/domain/repository"
	"github.com/dropDatabas3/authpush/internal/domain/types"
)

// MemoryRepo es un AccountRepository in-process para desarrollo/testing.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]types.Account
}

// NewMemory crea un repositorio en memoria vacío.
func NewMemory() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]types.Account)}
}

func (m *MemoryRepo) FindByUsername(ctx context.Context, username string) ([]types.Account, error) {
	username = NormalizeUsername(username)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []types.Account
	for _, a := range m.byID {
		if a.Username == username {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

func (m *MemoryRepo) FindByPushID(ctx context.Context, pushID string) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.byID {
		if a.PushID != "" && a.PushID == pushID {
			c := a.Clone()
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemoryRepo) FindByDeviceKeyID(ctx context.Context, deviceKeyID string) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.byID {
		if a.DeviceKeyID != "" && a.DeviceKeyID == deviceKeyID {
			c := a.Clone()
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MemoryRepo) Create(ctx context.Context, username string) (*types.Account, error) {
	a := types.Account{
		ID:           uuid.NewString(),
		Username:     NormalizeUsername(username),
		RegisteredAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.byID[a.ID] = a
	m.mu.Unlock()
	c := a.Clone()
	return &c, nil
}

func (m *MemoryRepo) Update(ctx context.Context, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[account.ID]; !ok {
		return repository.ErrNotFound
	}
	m.byID[account.ID] = account.Clone()
	return nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *MemoryRepo) Ping(ctx context.Context) error { return nil }
func (m *MemoryRepo) Close() error                   { return nil }
