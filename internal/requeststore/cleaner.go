package requeststore

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/authpush/internal/observability/logger"
)

// Cleaner ejecuta Sweep periódicamente sobre uno o más stores. El ciclo
// de vida es del dueño de los stores: Start al arrancar, Stop al apagar.
type Cleaner struct {
	interval time.Duration
	sweepers []Sweeper

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleaner crea un cleaner. Si interval es 0 se usa un minuto.
func NewCleaner(interval time.Duration, sweepers ...Sweeper) *Cleaner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Cleaner{interval: interval, sweepers: sweepers}
}

// Start lanza el loop de limpieza. Idempotente si ya está corriendo.
func (c *Cleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx)
}

func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)
	log := logger.From(ctx).With(logger.Layer("requeststore"), logger.Op("sweep"))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := 0
			for _, s := range c.sweepers {
				n, err := s.Sweep(ctx)
				if err != nil {
					log.Warn("sweep failed", logger.Err(err))
					continue
				}
				total += n
			}
			if total > 0 {
				log.Debug("sweep completed", logger.Count(total))
			}
		}
	}
}

// Stop detiene el loop y espera a que termine.
func (c *Cleaner) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
