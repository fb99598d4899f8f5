package requeststore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRecord es un record mínimo para ejercitar el store.
type fakeRecord struct {
	ID       string
	Alt      string
	Until    time.Time
	Final    bool
	FinalAt  time.Time
	Attempts int
}

func (r fakeRecord) PrimaryKey() string   { return r.ID }
func (r fakeRecord) SecondaryKey() string { return r.Alt }
func (r fakeRecord) ExpiresAt() time.Time { return r.Until }
func (r fakeRecord) Terminal() bool       { return r.Final }
func (r fakeRecord) TerminalAt() time.Time {
	return r.FinalAt
}
func (r fakeRecord) Rejected() fakeRecord {
	r.Final = true
	r.FinalAt = time.Now()
	return r
}

func newFake(id, alt string, ttl time.Duration) fakeRecord {
	return fakeRecord{ID: id, Alt: alt, Until: time.Now().Add(ttl)}
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	rec := newFake("req-1", "push-1", time.Minute)
	require.NoError(t, s.Put(ctx, rec))

	got, found, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "push-1", got.Alt)

	got, found, err = s.GetBySecondaryKey(ctx, "push-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "req-1", got.ID)

	ok, err := s.Contains(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, found, err = s.Get(ctx, "nope")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_RemoveDropsBothKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	require.NoError(t, s.Put(ctx, newFake("req-1", "push-1", time.Minute)))
	require.NoError(t, s.Remove(ctx, "req-1"))

	_, found, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = s.GetBySecondaryKey(ctx, "push-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_UpdateReindexes(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	rec := newFake("req-1", "push-old", time.Minute)
	require.NoError(t, s.Put(ctx, rec))

	rec.Alt = "push-new"
	require.NoError(t, s.Update(ctx, rec))

	_, found, err := s.GetBySecondaryKey(ctx, "push-old")
	require.NoError(t, err)
	require.False(t, found, "el índice viejo debe desaparecer")

	got, found, err := s.GetBySecondaryKey(ctx, "push-new")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "req-1", got.ID)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	rec := fakeRecord{ID: "req-1", Alt: "push-1", Until: time.Now().Add(-ExpiryGrace)}
	require.NoError(t, s.Put(ctx, rec))

	// El TTL mínimo es el grace, así que hay que esperar a que venza.
	require.Eventually(t, func() bool {
		_, found, _ := s.Get(ctx, "req-1")
		return !found
	}, 2*ExpiryGrace+time.Second, 50*time.Millisecond)
}

func TestMemoryStore_SweepPurgesTerminalPastGrace(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 100*time.Millisecond)
	defer s.Close()

	rec := newFake("req-1", "push-1", time.Minute)
	require.NoError(t, s.Put(ctx, rec))

	done := rec
	done.Final = true
	done.FinalAt = time.Now().Add(-time.Second)
	// Put directo para evitar el TTL acortado del Update y probar Sweep.
	s.records.Set(done.ID, done, time.Minute)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)

	_, found, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_SweepDropsOrphanIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	require.NoError(t, s.Put(ctx, newFake("req-1", "push-1", time.Minute)))
	s.records.Delete("req-1")

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, found, err := s.GetBySecondaryKey(ctx, "push-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestMemoryStore_WithSecondaryLockSerializes(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	defer s.Close()

	require.NoError(t, s.Put(ctx, newFake("req-1", "push-1", time.Minute)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithSecondaryLock(ctx, "push-1", func() error {
				rec, found, err := s.GetBySecondaryKey(ctx, "push-1")
				if err != nil || !found {
					return fmt.Errorf("lookup failed: %v", err)
				}
				rec.Attempts++
				return s.Update(ctx, rec)
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, found, err := s.Get(ctx, "req-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 20, got.Attempts)
}

func TestMemoryStore_ClosedRejectsOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemory[fakeRecord](time.Minute, 0)
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Put(ctx, newFake("x", "y", time.Minute)), ErrClosed)
	_, _, err := s.Get(ctx, "x")
	require.ErrorIs(t, err, ErrClosed)
}

func TestCleaner_StartStop(t *testing.T) {
	s := NewMemory[fakeRecord](time.Minute, 10*time.Millisecond)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), newFake("req-1", "push-1", time.Minute)))
	s.records.Delete("req-1")

	c := NewCleaner(20*time.Millisecond, s)
	c.Start(context.Background())

	require.Eventually(t, func() bool {
		_, found, _ := s.GetBySecondaryKey(context.Background(), "push-1")
		return !found
	}, time.Second, 10*time.Millisecond)

	c.Stop()
	c.Stop() // idempotente
}
