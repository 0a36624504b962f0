package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLockerGrantsEveryRequest(t *testing.T) {
	var locker *Locker
	assert.Nil(t, NewLocker(nil))
	assert.False(t, locker.Enabled())

	token, ok, err := locker.TryLock(context.Background(), "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, locker.Release(context.Background(), "k", token))
}

func TestSettlementLockWithoutRedis(t *testing.T) {
	lock := NewSettlementLock(NewLocker(nil))

	token, ok, err := lock.TryLockOrder(context.Background(), "SO-251017-001", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, lock.ReleaseOrder(context.Background(), "SO-251017-001", token))

	var nilLock *SettlementLock
	_, ok, err = nilLock.TryLockOrder(context.Background(), "SO-251017-001", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNamespacedKey(t *testing.T) {
	key, err := namespaced(" scheduler:job:outbox_relay ")
	require.NoError(t, err)
	assert.Equal(t, "tradebook:lock:scheduler:job:outbox_relay", key)

	_, err = namespaced("  ")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestTryLockRejectsBadArgumentsBeforeRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)
	require.True(t, locker.Enabled())

	_, ok, err := locker.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.False(t, ok)

	_, ok, err = locker.TryLock(context.Background(), "settle:order:SO-251017-001", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	assert.False(t, ok)

	assert.NoError(t, locker.Release(context.Background(), "settle:order:SO-251017-001", ""))
}

func TestOrderKey(t *testing.T) {
	assert.Equal(t, "settle:order:SL-251017-047", orderKey(" SL-251017-047 "))
}

func newRedisLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), srv
}

func TestTryLockGrantsOneHolder(t *testing.T) {
	locker, srv := newRedisLocker(t)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "settle:order:SO-260118-001", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	stored, err := srv.Get(Namespace + "settle:order:SO-260118-001")
	require.NoError(t, err)
	assert.Equal(t, token, stored)
	assert.Equal(t, 30*time.Second, srv.TTL(Namespace+"settle:order:SO-260118-001"))

	other, ok, err := locker.TryLock(ctx, "settle:order:SO-260118-001", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, other)
}

func TestReleaseOnlyByHolder(t *testing.T) {
	locker, srv := newRedisLocker(t)
	ctx := context.Background()
	key := "scheduler:job:outbox_relay"

	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, key, "someone-else"))
	assert.True(t, srv.Exists(Namespace+key))

	require.NoError(t, locker.Release(ctx, key, token))
	assert.False(t, srv.Exists(Namespace+key))

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	locker, srv := newRedisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "settle:order:SL-260118-002", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "settle:order:SL-260118-002", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
