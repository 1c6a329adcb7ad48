package redislock

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/bc-sync-api/internal/application/purchasing"
)

// Requiere un Redis real: REDIS_ADDRESS=localhost:6379 go test ./internal/infrastructure/redislock/
func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS no definido")
	}
	rdb, err := Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 5*time.Second, zerolog.Nop())
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	key := fmt.Sprintf("test:purchase-order:%d:reconcile", time.Now().UnixNano())

	release, err := l.Obtain(ctx, key)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, key)
	assert.ErrorIs(t, err, purchasing.ErrLockHeld)

	release()
	release2, err := l.Obtain(ctx, key)
	require.NoError(t, err)
	release2()
}

func TestLocker_ReleaseTwiceIsHarmless(t *testing.T) {
	l := newTestLocker(t)
	release, err := l.Obtain(context.Background(), fmt.Sprintf("test:twice:%d", time.Now().UnixNano()))
	require.NoError(t, err)
	release()
	assert.NotPanics(t, release)
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
