package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому t.Parallel() не используется.

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFrom_ReturnsDefault_WhenNoLoggerInContext(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

func TestIntoAndFrom_RoundTrip(t *testing.T) {
	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Equal(t, l, From(ctx))
}

func TestFrom_NilOrForeignValue(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	def := newSilent()
	slog.SetDefault(def)

	var nilLogger *slog.Logger
	require.Equal(t, def, From(Into(context.Background(), nilLogger)))
	require.Equal(t, def, From(context.WithValue(context.Background(), ctxKey{}, "not-a-logger")))
}

func TestInto_ShadowParentLogger(t *testing.T) {
	parentL, childL := newSilent(), newSilent()

	parent := Into(context.Background(), parentL)
	child := Into(parent, childL)

	require.Equal(t, childL, From(child))
	require.Equal(t, parentL, From(parent))
}

func TestOp_AddsOpAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := Into(context.Background(), l)

	Op(ctx, "tokens.service.Verify", "purpose", "password-reset").Info("token_verified")

	out := buf.String()
	require.Contains(t, out, "op=tokens.service.Verify")
	require.Contains(t, out, "purpose=password-reset")
	require.Contains(t, out, "msg=token_verified")
}
