package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Unit-тесты хранилищ поверх Redis на miniredis (TTL сдвигается FastForward).

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return m, rdb
}

func TestNewRedisClient(t *testing.T) {
	m := miniredis.RunT(t)

	rdb, err := NewRedisClient(context.Background(), "redis://"+m.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = NewRedisClient(context.Background(), "://bad")
	require.Error(t, err)

	addr := m.Addr()
	m.Close()
	_, err = NewRedisClient(context.Background(), "redis://"+addr+"/0")
	require.Error(t, err, "ping должен упасть на закрытом сервере")
}

func TestNonceStore_PutConsume(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewNonceStore(rdb, "")
	ctx := context.Background()

	ok, err := s.Put(ctx, "password-reset:abc", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, m.Exists("authenticator:password-reset:abc"))
	require.Equal(t, time.Minute, m.TTL("authenticator:password-reset:abc"))

	ok, err = s.Put(ctx, "password-reset:abc", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "повторная запись того же ключа запрещена")

	ok, err = s.Consume(ctx, "password-reset:abc")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Consume(ctx, "password-reset:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNonceStore_TTLExpiry(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewNonceStore(rdb, "p:")
	ctx := context.Background()

	ok, err := s.Put(ctx, "k", 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	m.FastForward(time.Second)

	ok, err = s.Consume(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNonceStore_Unavailable(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewNonceStore(rdb, "")
	m.Close()

	_, err := s.Put(context.Background(), "k", time.Minute)
	require.Error(t, err)

	_, err = s.Consume(context.Background(), "k")
	require.Error(t, err)

	require.Error(t, s.Ping(context.Background()))
}

func TestSessionStore_CommitFindDelete(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewSessionStore(rdb, "")
	ctx := context.Background()

	require.NoError(t, s.CommitCtx(ctx, "tok", []byte("data"), time.Now().Add(time.Hour)))
	require.True(t, m.Exists("session:tok"))

	b, found, err := s.FindCtx(ctx, "tok")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("data"), b)

	all, err := s.All()
	require.NoError(t, err)
	require.Equal(t, map[string][]byte{"tok": []byte("data")}, all)

	require.NoError(t, s.Delete("tok"))
	_, found, err = s.Find("tok")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSessionStore_ExpiredCommitDeletes(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewSessionStore(rdb, "sess:")

	require.NoError(t, s.Commit("tok", []byte("x"), time.Now().Add(time.Hour)))
	require.NoError(t, s.Commit("tok", []byte("x"), time.Now().Add(-time.Second)))
	require.False(t, m.Exists("sess:tok"))
}

func TestSessionStore_TTL(t *testing.T) {
	m, rdb := newRedis(t)
	s := NewSessionStore(rdb, "")

	require.NoError(t, s.Commit("tok", []byte("x"), time.Now().Add(time.Minute)))
	m.FastForward(2 * time.Minute)

	_, found, err := s.Find("tok")
	require.NoError(t, err)
	require.False(t, found)
}
