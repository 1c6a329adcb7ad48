// Package redislock implementa purchasing.OrderLocker sobre Redis.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
)

var _ purchasing.OrderLocker = (*Locker)(nil)

const releaseTimeout = 5 * time.Second

// Locker lock exclusivo por clave con TTL fijo y sin reintentos: si otro
// proceso lo tiene, Obtain falla de inmediato con purchasing.ErrLockHeld.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// New construye el locker sobre un cliente go-redis ya conectado.
func New(rdb redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Locker{
		client: redislock.New(rdb),
		ttl:    ttl,
		log:    log.With().Str("component", "redislock").Logger(),
	}
}

// Connect abre el cliente Redis y verifica la conexión con PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Obtain toma el lock de key. El release usa su propio contexto para no
// depender del ciclo de vida de ctx.
func (l *Locker) Obtain(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", purchasing.ErrLockHeld, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redislock: obtener %s: %w", key, err)
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el lock")
		}
	}, nil
}
