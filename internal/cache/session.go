package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

// SessionStore — хранилище сессий scs поверх Redis.
// Срок жизни записи совпадает со сроком сессии.
type SessionStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewSessionStore создаёт хранилище. Если prefix пустой — используется "session:".
func NewSessionStore(rdb redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "session:"
	}

	return &SessionStore{rdb: rdb, prefix: prefix}
}

func (s *SessionStore) key(token string) string { return s.prefix + token }

// FindCtx возвращает данные сессии; found=false, если сессии нет или она истекла.
func (s *SessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	const op = "cache.session.Find"

	b, err := s.rdb.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return b, true, nil
}

// CommitCtx сохраняет сессию до expiry.
func (s *SessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	const op = "cache.session.Commit"

	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.DeleteCtx(ctx, token)
	}

	if err := s.rdb.Set(ctx, s.key(token), b, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteCtx удаляет сессию; отсутствие ключа ошибкой не считается.
func (s *SessionStore) DeleteCtx(ctx context.Context, token string) error {
	const op = "cache.session.Delete"

	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AllCtx возвращает все живые сессии (SCAN по префиксу).
func (s *SessionStore) AllCtx(ctx context.Context) (map[string][]byte, error) {
	const op = "cache.session.All"

	out := make(map[string][]byte)
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		b, err := s.rdb.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out[strings.TrimPrefix(k, s.prefix)] = b
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Find, Commit, Delete и All нужны для scs.Store; scs предпочитает Ctx-варианты.

func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *SessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *SessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

func (s *SessionStore) All() (map[string][]byte, error) {
	return s.AllCtx(context.Background())
}

var (
	_ scs.CtxStore         = (*SessionStore)(nil)
	_ scs.IterableCtxStore = (*SessionStore)(nil)
)
