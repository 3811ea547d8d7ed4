package oauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultStateTTL = 10 * time.Minute

// ErrInvalidState — state подделан, истёк или не совпал с сессией.
var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	ReturnPath string `json:"rp"`
	jwt.RegisteredClaims
}

// State — содержимое state после проверки.
type State struct {
	ID         string
	ReturnPath string
}

// StateSigner подписывает state (HS256). ID дополнительно кладётся в сессию,
// чтобы callback принимал только state, выданный этому браузеру.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner создаёт подписчика; ttl<=0 — 10 минут.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign возвращает подписанный state и его ID.
func (s *StateSigner) Sign(returnPath string) (string, string, error) {
	const op = "oauth.state.Sign"

	now := s.now()
	id := uuid.NewString()
	claims := stateClaims{
		ReturnPath: SafeReturnPath(returnPath),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, id, nil
}

// Parse проверяет подпись и срок state.
func (s *StateSigner) Parse(raw string) (State, error) {
	var claims stateClaims

	token, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return State{}, ErrInvalidState
	}

	return State{ID: claims.ID, ReturnPath: SafeReturnPath(claims.ReturnPath)}, nil
}

// SafeReturnPath оставляет только относительный путь фронтенда: "/x", но не
// "//host" и не абсолютный URL. Иначе — "/".
func SafeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}

	return p
}
