package requeststore

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implementa Store en memoria sobre go-cache. Dos caches:
// records por clave primaria e índice secundario → clave primaria.
type MemoryStore[T Record[T]] struct {
	records       *gocache.Cache
	index         *gocache.Cache
	locks         *keyMutex
	terminalGrace time.Duration
	closed        atomic.Bool
}

// NewMemory crea un store en memoria. Si terminalGrace es 0 se usa
// DefaultTerminalGrace.
func NewMemory[T Record[T]](defaultTTL, terminalGrace time.Duration) *MemoryStore[T] {
	if terminalGrace <= 0 {
		terminalGrace = DefaultTerminalGrace
	}
	return &MemoryStore[T]{
		records:       gocache.New(defaultTTL, time.Minute),
		index:         gocache.New(defaultTTL, time.Minute),
		locks:         newKeyMutex(),
		terminalGrace: terminalGrace,
	}
}

func (s *MemoryStore[T]) Put(ctx context.Context, rec T) error {
	if s.closed.Load() {
		return ErrClosed
	}
	ttl := ttlFor(rec, s.terminalGrace, time.Now())
	s.records.Set(rec.PrimaryKey(), rec, ttl)
	if sk := rec.SecondaryKey(); sk != "" {
		s.index.Set(sk, rec.PrimaryKey(), ttl)
	}
	return nil
}

func (s *MemoryStore[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if s.closed.Load() {
		return zero, false, ErrClosed
	}
	v, ok := s.records.Get(id)
	if !ok {
		return zero, false, nil
	}
	rec, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore[T]) GetBySecondaryKey(ctx context.Context, key string) (T, bool, error) {
	var zero T
	if s.closed.Load() {
		return zero, false, ErrClosed
	}
	v, ok := s.index.Get(key)
	if !ok {
		return zero, false, nil
	}
	id, _ := v.(string)
	rec, found, err := s.Get(ctx, id)
	if err != nil || !found {
		return zero, false, err
	}
	// Índice stale: el record fue re-indexado bajo otra clave secundaria.
	if rec.SecondaryKey() != key {
		s.index.Delete(key)
		return zero, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, rec T) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if old, found, _ := s.Get(ctx, rec.PrimaryKey()); found {
		if osk := old.SecondaryKey(); osk != "" && osk != rec.SecondaryKey() {
			s.index.Delete(osk)
		}
	}
	return s.Put(ctx, rec)
}

func (s *MemoryStore[T]) Remove(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if rec, found, _ := s.Get(ctx, id); found {
		if sk := rec.SecondaryKey(); sk != "" {
			s.index.Delete(sk)
		}
	}
	s.records.Delete(id)
	return nil
}

func (s *MemoryStore[T]) Contains(ctx context.Context, id string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	_, ok := s.records.Get(id)
	return ok, nil
}

func (s *MemoryStore[T]) WithSecondaryLock(ctx context.Context, key string, fn func() error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	unlock := s.locks.Lock(key)
	defer unlock()
	return fn()
}

// Sweep elimina records terminales pasados de grace e índices que apuntan
// a records que ya no existen. go-cache purga lo expirado por TTL solo.
func (s *MemoryStore[T]) Sweep(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	now := time.Now()
	removed := 0
	for id, item := range s.records.Items() {
		rec, ok := item.Object.(T)
		if !ok {
			continue
		}
		if rec.Terminal() && now.Sub(rec.TerminalAt()) > s.terminalGrace {
			_ = s.Remove(ctx, id)
			removed++
		}
	}
	for key, item := range s.index.Items() {
		id, _ := item.Object.(string)
		if _, ok := s.records.Get(id); !ok {
			s.index.Delete(key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore[T]) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.records.Flush()
	s.index.Flush()
	return nil
}
