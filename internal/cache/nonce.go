package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/authenticator/internal/tokens"
)

// NonceStore хранит одноразовые ключи токенов: значение не важно,
// важен сам факт наличия ключа до истечения TTL.
type NonceStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewNonceStore создаёт хранилище. Если prefix пустой — используется "authenticator:".
func NewNonceStore(rdb redis.UniversalClient, prefix string) *NonceStore {
	if prefix == "" {
		prefix = "authenticator:"
	}

	return &NonceStore{rdb: rdb, prefix: prefix}
}

func (s *NonceStore) key(k string) string { return s.prefix + k }

// Put выполняет SET key 1 PX ttl NX.
func (s *NonceStore) Put(ctx context.Context, k string, ttl time.Duration) (bool, error) {
	const op = "cache.nonce.Put"

	ok, err := s.rdb.SetNX(ctx, s.key(k), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// Consume выполняет DEL key: число удалённых ключей и есть ответ
// «существовал ли ключ», поэтому проверка и удаление неделимы.
func (s *NonceStore) Consume(ctx context.Context, k string) (bool, error) {
	const op = "cache.nonce.Consume"

	n, err := s.rdb.Del(ctx, s.key(k)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n == 1, nil
}

// Ping проверяет доступность Redis (readiness).
func (s *NonceStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

var _ tokens.NonceStore = (*NonceStore)(nil)
