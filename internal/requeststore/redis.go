package requeststore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"
)

// RedisStore implementa Store sobre Redis. El TTL es nativo y los locks
// secundarios se hacen con SET NX PX, así varias instancias del servicio
// pueden compartir el mismo store.
type RedisStore[T Record[T]] struct {
	c             *rdb.Client
	prefix        string
	terminalGrace time.Duration
}

// releaseScript borra el lock solo si el token coincide, para no soltar
// un lock que ya expiró y fue tomado por otro holder.
var releaseScript = rdb.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const (
	lockTTL       = 10 * time.Second
	lockRetryWait = 25 * time.Millisecond
)

// NewRedis crea un store sobre un cliente Redis existente. El prefix
// separa namespaces (ej. "authpush:push", "authpush:reg").
func NewRedis[T Record[T]](client *rdb.Client, prefix string, terminalGrace time.Duration) *RedisStore[T] {
	if terminalGrace <= 0 {
		terminalGrace = DefaultTerminalGrace
	}
	return &RedisStore[T]{c: client, prefix: prefix, terminalGrace: terminalGrace}
}

func (s *RedisStore[T]) recKey(id string) string   { return fmt.Sprintf("%s:req:%s", s.prefix, id) }
func (s *RedisStore[T]) idxKey(key string) string  { return fmt.Sprintf("%s:idx:%s", s.prefix, key) }
func (s *RedisStore[T]) lockKey(key string) string { return fmt.Sprintf("%s:lock:%s", s.prefix, key) }

func (s *RedisStore[T]) Put(ctx context.Context, rec T) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("requeststore: marshal record: %w", err)
	}
	ttl := ttlFor(rec, s.terminalGrace, time.Now())
	pipe := s.c.TxPipeline()
	pipe.Set(ctx, s.recKey(rec.PrimaryKey()), b, ttl)
	if sk := rec.SecondaryKey(); sk != "" {
		pipe.Set(ctx, s.idxKey(sk), rec.PrimaryKey(), ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	b, err := s.c.Get(ctx, s.recKey(id)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	var rec T
	if err := json.Unmarshal(b, &rec); err != nil {
		return zero, false, fmt.Errorf("requeststore: unmarshal record: %w", err)
	}
	return rec, true, nil
}

func (s *RedisStore[T]) GetBySecondaryKey(ctx context.Context, key string) (T, bool, error) {
	var zero T
	id, err := s.c.Get(ctx, s.idxKey(key)).Result()
	if errors.Is(err, rdb.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	rec, found, err := s.Get(ctx, id)
	if err != nil || !found {
		return zero, false, err
	}
	if rec.SecondaryKey() != key {
		_ = s.c.Del(ctx, s.idxKey(key)).Err()
		return zero, false, nil
	}
	return rec, true, nil
}

func (s *RedisStore[T]) Update(ctx context.Context, rec T) error {
	if old, found, err := s.Get(ctx, rec.PrimaryKey()); err != nil {
		return err
	} else if found {
		if osk := old.SecondaryKey(); osk != "" && osk != rec.SecondaryKey() {
			_ = s.c.Del(ctx, s.idxKey(osk)).Err()
		}
	}
	return s.Put(ctx, rec)
}

func (s *RedisStore[T]) Remove(ctx context.Context, id string) error {
	rec, found, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{s.recKey(id)}
	if found {
		if sk := rec.SecondaryKey(); sk != "" {
			keys = append(keys, s.idxKey(sk))
		}
	}
	return s.c.Del(ctx, keys...).Err()
}

func (s *RedisStore[T]) Contains(ctx context.Context, id string) (bool, error) {
	n, err := s.c.Exists(ctx, s.recKey(id)).Result()
	return n > 0, err
}

// WithSecondaryLock toma un lock distribuido sobre la clave secundaria.
// Reintenta hasta que el contexto expire.
func (s *RedisStore[T]) WithSecondaryLock(ctx context.Context, key string, fn func() error) error {
	token := uuid.NewString()
	lk := s.lockKey(key)
	for {
		ok, err := s.c.SetNX(ctx, lk, token, lockTTL).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return ErrLockTimeout
		case <-time.After(lockRetryWait):
		}
	}
	defer func() {
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, s.c, []string{lk}, token).Err()
	}()
	return fn()
}

// Sweep no tiene trabajo en Redis: el TTL nativo purga lo expirado y
// Update acorta el TTL de los records terminales al grace.
func (s *RedisStore[T]) Sweep(ctx context.Context) (int, error) {
	return 0, nil
}

func (s *RedisStore[T]) Close() error {
	return s.c.Close()
}
