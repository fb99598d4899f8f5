package requeststore

import "sync"

// keyMutex da exclusión mutua por clave con refcount: la entrada se
// libera cuando el último holder suelta el lock, así el mapa no crece
// sin límite con claves efímeras.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

// Lock toma el lock de la clave. Retorna la función de unlock.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
