package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la variante in-process del fixed window, para
// despliegues sin Redis. Los contadores expiran con la ventana.
type MemoryLimiter struct {
	counters *gocache.Cache
	max      int64
	window   time.Duration
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		counters: gocache.New(window, 2*window),
		max:      int64(max),
		window:   window,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	winStart := time.Now().UTC().Truncate(l.window)
	bucket := key + ":" + winStart.Format(time.RFC3339)

	// Add falla si la key ya existe; en ese caso incrementamos.
	var hits int64 = 1
	if err := l.counters.Add(bucket, int64(1), l.window); err != nil {
		n, incErr := l.counters.IncrementInt64(bucket, 1)
		if incErr != nil {
			// el bucket expiró entre Add e Increment, ventana nueva
			l.counters.Set(bucket, int64(1), l.window)
			n = 1
		}
		hits = n
	}

	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: hits <= l.max, Remaining: remaining}
	if !res.Allowed {
		res.RetryAfter = l.window - time.Since(winStart)
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res, nil
}
