package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/domain"
)

func newLocker(t *testing.T, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, time.Minute, wait, zap.NewNop()), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mr := newLocker(t, 0)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "booking-room-type:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"booking-room-type:1"))

	_, err = l.Acquire(ctx, "booking-room-type:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)

	release()
	assert.False(t, mr.Exists(keyPrefix+"booking-room-type:1"))

	release2, err := l.Acquire(ctx, "booking-room-type:1")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_KeysAreIndependent(t *testing.T) {
	l, _ := newLocker(t, 0)
	ctx := context.Background()

	r1, err := l.Acquire(ctx, "a")
	require.NoError(t, err)
	defer r1()
	r2, err := l.Acquire(ctx, "b")
	require.NoError(t, err)
	defer r2()
}

func TestRedisLocker_ReleaseKeepsForeignLock(t *testing.T) {
	l, mr := newLocker(t, 0)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// The lock expired and another holder took it.
	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"k", "someone-else"))

	release()
	got, err := mr.Get(keyPrefix + "k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_WaitsForRelease(t *testing.T) {
	l, _ := newLocker(t, 2*time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	go func() {
		time.Sleep(50 * time.Millisecond)
		release()
	}()

	release2, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_Expires(t *testing.T) {
	l, mr := newLocker(t, 0)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)
	release()
}

func TestNoopLocker(t *testing.T) {
	release, err := NoopLocker{}.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}
