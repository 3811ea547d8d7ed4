package tokens

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	version = "v1"
	keyInfo = "authenticator token " + version
)

var encoding = base64.RawURLEncoding.Strict()

// Codec шифрует и аутентифицирует Claims (XChaCha20-Poly1305).
// Формат: "v1." + base64url(nonce24 || ciphertext).
type Codec struct {
	aead cipher.AEAD
	ad   []byte
}

// NewCodec выводит ключ из secretKey (HKDF-SHA256); hmacSecret входит в
// associated data, поэтому смена любого из секретов отзывает все токены.
func NewCodec(secretKey, hmacSecret string) (*Codec, error) {
	const op = "tokens.codec.NewCodec"

	if secretKey == "" || hmacSecret == "" {
		return nil, fmt.Errorf("%s: empty secret", op)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secretKey), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Codec{
		aead: aead,
		ad:   append([]byte(version), hmacSecret...),
	}, nil
}

// Seal возвращает непрозрачную строку токена.
func (c *Codec) Seal(claims Claims) (string, error) {
	const op = "tokens.codec.Seal"

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(payload)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	box := c.aead.Seal(nonce, nonce, payload, c.ad)

	return version + "." + encoding.EncodeToString(box), nil
}

// Open проверяет и расшифровывает токен.
func (c *Codec) Open(token string) (Claims, error) {
	var claims Claims

	body, ok := strings.CutPrefix(token, version+".")
	if !ok {
		return claims, fmt.Errorf("%w: unknown version", ErrMalformedToken)
	}

	box, err := encoding.DecodeString(body)
	if err != nil {
		return claims, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	ns := c.aead.NonceSize()
	if len(box) < ns+c.aead.Overhead() {
		return claims, fmt.Errorf("%w: too short", ErrMalformedToken)
	}

	payload, err := c.aead.Open(nil, box[:ns], box[ns:], c.ad)
	if err != nil {
		return claims, ErrInvalidSignature
	}

	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if err := claims.validate(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func (c Claims) validate() error {
	switch {
	case c.SubjectID == uuid.Nil:
		return fmt.Errorf("%w: empty subject", ErrMalformedToken)
	case c.Nonce == "":
		return fmt.Errorf("%w: empty nonce", ErrMalformedToken)
	case c.ExpiresAt.IsZero():
		return fmt.Errorf("%w: empty expiry", ErrMalformedToken)
	}

	return nil
}
