// log переносит *slog.Logger через context.Context, чтобы обогащённый
// на транспорте логгер (request_id и т.п.) доходил до сервисного слоя.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}

	return slog.Default()
}

// Op возвращает логгер из контекста с атрибутом op и дополнительными полями.
func Op(ctx context.Context, op string, args ...any) *slog.Logger {
	return From(ctx).With(append([]any{"op", op}, args...)...)
}
