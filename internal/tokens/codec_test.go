package tokens_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authenticator/internal/tokens"
)

func newCodec(t *testing.T, key, hmac string) *tokens.Codec {
	t.Helper()
	c, err := tokens.NewCodec(key, hmac)
	require.NoError(t, err)
	return c
}

func sampleClaims() tokens.Claims {
	return tokens.Claims{
		SubjectID: uuid.New(),
		Nonce:     strings.Repeat("ab", 32),
		ExpiresAt: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCodec_SealOpen(t *testing.T) {
	t.Parallel()

	c := newCodec(t, "secret", "hmac")
	in := sampleClaims()

	tok, err := c.Seal(in)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(tok, "v1."))
	require.NotContains(t, tok, in.Nonce, "nonce не должен быть виден в токене")
	require.NotContains(t, tok, in.SubjectID.String())

	out, err := c.Open(tok)
	require.NoError(t, err)
	require.Equal(t, in.SubjectID, out.SubjectID)
	require.Equal(t, in.Nonce, out.Nonce)
	require.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
}

func TestCodec_SealIsRandomized(t *testing.T) {
	t.Parallel()

	c := newCodec(t, "secret", "hmac")
	in := sampleClaims()

	a, err := c.Seal(in)
	require.NoError(t, err)
	b, err := c.Seal(in)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestCodec_RejectsForeignSecrets(t *testing.T) {
	t.Parallel()

	tok, err := newCodec(t, "secret", "hmac").Seal(sampleClaims())
	require.NoError(t, err)

	_, err = newCodec(t, "other", "hmac").Open(tok)
	require.ErrorIs(t, err, tokens.ErrInvalidSignature)

	_, err = newCodec(t, "secret", "other").Open(tok)
	require.ErrorIs(t, err, tokens.ErrInvalidSignature)
}

func TestCodec_Malformed(t *testing.T) {
	t.Parallel()

	c := newCodec(t, "secret", "hmac")

	cases := map[string]string{
		"empty":          "",
		"no_version":     "abcdef",
		"wrong_version":  "v2.AAAA",
		"bad_base64":     "v1.***",
		"too_short":      "v1.AAAA",
		"padding_in_raw": "v1.AAAA==",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := c.Open(tok)
			require.ErrorIs(t, err, tokens.ErrMalformedToken)
		})
	}
}

// Любой изменённый символ токена даёт ошибку формата или подписи.
func TestCodec_TamperAnyByte(t *testing.T) {
	t.Parallel()

	c := newCodec(t, "secret", "hmac")
	tok, err := c.Seal(sampleClaims())
	require.NoError(t, err)

	for i := range len(tok) {
		repl := byte('A')
		if tok[i] == 'A' {
			repl = 'B'
		}
		tampered := tok[:i] + string(repl) + tok[i+1:]

		_, err := c.Open(tampered)
		require.Error(t, err, "позиция %d", i)
		require.True(t, tokens.IsRejected(err), "позиция %d: %v", i, err)
	}

	_, err = c.Open(tok[:len(tok)-1])
	require.True(t, tokens.IsRejected(err))
}

func TestNewCodec_EmptySecrets(t *testing.T) {
	t.Parallel()

	_, err := tokens.NewCodec("", "hmac")
	require.Error(t, err)
	_, err = tokens.NewCodec("secret", "")
	require.Error(t, err)
}
