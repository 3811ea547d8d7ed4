// tokens выпускает и проверяет одноразовые ограниченные по времени токены
// (подтверждение e-mail, сброс и смена пароля).
//
// Токен — зашифрованные Claims{subject, nonce, exp}. Nonce дублируется
// ключом {purpose}:{nonce} в кэше с тем же сроком жизни; наличие ключа
// означает «ещё не использован». Проверка удаляет ключ атомарно
// (одна команда удаления, возвращающая число удалённых ключей), поэтому
// два конкурентных Verify одного токена не могут оба завершиться успехом.
//
// Мутации кэша выполняются в контексте, отвязанном от отмены запроса:
// если запись/удаление уже отправлены, их результат не бросается.
package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/pkg/redact"
)

const (
	nonceBytes  = 32
	maxAttempts = 5

	defaultOpTimeout = 2 * time.Second
	// minTTL — разрешение TTL в Redis (PX).
	minTTL = time.Millisecond
)

// Результаты проверки для метрик.
const (
	ResultOK         = "ok"
	ResultMalformed  = "malformed"
	ResultForged     = "forged"
	ResultExpired    = "expired"
	ResultConsumed   = "consumed"
	ResultCacheError = "cache_error"
)

// NonceStore — хранилище одноразовых ключей с TTL.
type NonceStore interface {
	// Put записывает ключ с TTL, если его ещё нет; false — ключ уже существует.
	Put(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Consume атомарно удаляет ключ; true — ключ существовал и удалён этим вызовом.
	Consume(ctx context.Context, key string) (bool, error)
}

// Observer получает события выпуска и проверки (метрики).
type Observer interface {
	TokenIssued(purpose string)
	TokenVerified(purpose, result string)
}

type nopObserver struct{}

func (nopObserver) TokenIssued(string)           {}
func (nopObserver) TokenVerified(string, string) {}

// Service выпускает и проверяет токены. Изменяемого состояния нет:
// после New безопасен для конкурентного использования.
type Service struct {
	store     NonceStore
	codec     *Codec
	now       func() time.Time
	opTimeout time.Duration
	observer  Observer
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOpTimeout задаёт дедлайн одной операции с кэшем.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithObserver подключает наблюдателя (метрики).
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// New создаёт Service. Ключ шифрования выводится из secretKey, hmacSecret
// участвует в аутентификации токена.
func New(store NonceStore, secretKey, hmacSecret string, opts ...Option) (*Service, error) {
	const op = "tokens.service.New"

	if store == nil {
		return nil, fmt.Errorf("%s: nil store", op)
	}

	codec, err := NewCodec(secretKey, hmacSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := &Service{
		store:     store,
		codec:     codec,
		now:       time.Now,
		opTimeout: defaultOpTimeout,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue выпускает токен для subjectID с назначением purpose и сроком ttl.
// Токен возвращается только после успешной записи nonce в кэш.
func (s *Service) Issue(ctx context.Context, subjectID uuid.UUID, purpose Purpose, ttl time.Duration) (string, error) {
	const op = "tokens.service.Issue"

	if subjectID == uuid.Nil || !purpose.Valid() || ttl < minTTL {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	lg := log.Op(ctx, op, "purpose", purpose.String(), "user_id", subjectID.String())

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		nonce, err := newNonce()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		expiresAt := s.now().Add(ttl)
		token, err := s.codec.Seal(Claims{SubjectID: subjectID, Nonce: nonce, ExpiresAt: expiresAt})
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		// TTL записи считается от того же expiresAt: запись в кэше не переживёт токен.
		remaining := expiresAt.Sub(s.now())
		if remaining < minTTL {
			return "", fmt.Errorf("%s: %w: ttl elapsed before store", op, ErrInvalidInput)
		}

		stored, err := s.put(ctx, key(purpose, nonce), remaining)
		if err != nil {
			lg.Error("token_store_failed", "err", err.Error())
			return "", fmt.Errorf("%s: %w: %w", op, ErrCacheUnavailable, err)
		}

		if !stored {
			lg.Warn("token_nonce_collision", "attempt", attempt)
			continue
		}

		s.observer.TokenIssued(purpose.String())
		lg.Info("token_issued",
			"token_fp", redact.Fingerprint(token),
			"expires_at", expiresAt.UTC().Format(time.RFC3339),
		)

		return token, nil
	}

	lg.Error("token_nonce_attempts_exhausted", "attempts", maxAttempts)
	return "", fmt.Errorf("%s: %w", op, ErrNonceCollision)
}

// Verify проверяет токен для назначения purpose и возвращает subject.
// Успех возможен не более одного раза на токен.
func (s *Service) Verify(ctx context.Context, token string, purpose Purpose) (uuid.UUID, error) {
	const op = "tokens.service.Verify"

	if !purpose.Valid() {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	lg := log.Op(ctx, op, "purpose", purpose.String(), "token_fp", redact.Fingerprint(token))

	claims, err := s.codec.Open(token)
	if err != nil {
		result := ResultMalformed
		if errors.Is(err, ErrInvalidSignature) {
			result = ResultForged
		}
		s.observer.TokenVerified(purpose.String(), result)
		lg.Error("token_rejected", "reason", result, "err", err.Error())

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg = lg.With("user_id", claims.SubjectID.String())

	if !s.now().Before(claims.ExpiresAt) {
		s.observer.TokenVerified(purpose.String(), ResultExpired)
		lg.Info("token_expired", "expired_at", claims.ExpiresAt.UTC().Format(time.RFC3339))

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	// До отправки удаления отмена ещё уважается; после — нет.
	if err := ctx.Err(); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	consumed, err := s.consume(ctx, key(purpose, claims.Nonce))
	if err != nil {
		s.observer.TokenVerified(purpose.String(), ResultCacheError)
		lg.Error("token_consume_failed", "err", err.Error())

		return uuid.Nil, fmt.Errorf("%s: %w: %w", op, ErrCacheUnavailable, err)
	}

	if !consumed {
		s.observer.TokenVerified(purpose.String(), ResultConsumed)
		lg.Info("token_consumed_or_expired")

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrTokenConsumedOrExpired)
	}

	s.observer.TokenVerified(purpose.String(), ResultOK)
	lg.Info("token_verified")

	return claims.SubjectID, nil
}

func (s *Service) put(ctx context.Context, k string, ttl time.Duration) (bool, error) {
	opCtx, cancel := s.detach(ctx)
	defer cancel()

	return s.store.Put(opCtx, k, ttl)
}

func (s *Service) consume(ctx context.Context, k string) (bool, error) {
	opCtx, cancel := s.detach(ctx)
	defer cancel()

	return s.store.Consume(opCtx, k)
}

// detach сохраняет значения контекста (логгер), но не его отмену.
func (s *Service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
}

func key(purpose Purpose, nonce string) string {
	return purpose.String() + ":" + nonce
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
