package requeststore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyMutex_MutualExclusion(t *testing.T) {
	km := newKeyMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("same-key")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 100, counter)
}

func TestKeyMutex_ReleasesEntryWhenIdle(t *testing.T) {
	km := newKeyMutex()

	unlock := km.Lock("k")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks, "las claves sin holders no deben quedar en el mapa")
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	km := newKeyMutex()

	u1 := km.Lock("a")
	// Otra clave no debe bloquearse aunque "a" siga tomada.
	u2 := km.Lock("b")
	u2()
	u1()
}
