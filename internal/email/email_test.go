package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authenticator/internal/config"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
)

type captureTransport struct {
	msgs []Message
	err  error
}

func (c *captureTransport) Send(_ context.Context, msg Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func newTestNotifier(t *testing.T, tr Transport) *Notifier {
	t.Helper()
	n, err := NewNotifier(tr, "https://app.example.com")
	require.NoError(t, err)
	n.now = func() time.Time { return time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC) }
	return n
}

func TestRenderer_AllTemplates(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	require.NoError(t, err)

	for _, tpl := range []Template{TemplateVerification, TemplatePasswordReset} {
		html, text, err := r.Render(tpl, Data{
			Title:             "T",
			ActivationLink:    "https://api/x?token=a&b=c",
			Domain:            "https://app",
			ExpirationMinutes: 15,
		})
		require.NoError(t, err)
		require.Contains(t, html, "https://api/x?token=a&amp;b=c", "HTML экранируется")
		require.Contains(t, text, "https://api/x?token=a&b=c")
		require.Contains(t, text, "15 minutes")
	}

	_, _, err = r.Render("missing", Data{})
	require.Error(t, err)
}

func TestNotifier_SendVerification(t *testing.T) {
	t.Parallel()

	tr := &captureTransport{}
	n := newTestNotifier(t, tr)

	err := n.SendVerification(context.Background(), Recipient{Email: "ann@example.com", Name: "Ann"}, "https://api/confirm?token=t", 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, tr.msgs, 1)

	msg := tr.msgs[0]
	require.Equal(t, "ann@example.com", msg.To)
	require.Equal(t, "Please confirm your email address", msg.Subject)
	require.Contains(t, msg.Text, "Hi Ann")
	require.Contains(t, msg.Text, "https://api/confirm?token=t")
	require.Contains(t, msg.HTML, "Monday March 02, 2026 at 03:19:05 PM")
}

func TestNotifier_SendPasswordReset_TransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("smtp down")
	n := newTestNotifier(t, &captureTransport{err: boom})

	err := n.SendPasswordReset(context.Background(), Recipient{Email: "a@b.c"}, "link", time.Hour)
	require.ErrorIs(t, err, boom)
}

func TestLogTransport_RedactsRecipient(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.Into(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, LogTransport{}.Send(ctx, Message{To: "foobar@example.com", Subject: "S", Text: "body"}))
	require.Contains(t, buf.String(), "fo***@example.com")
	require.NotContains(t, buf.String(), "foobar@example.com")
}

func TestBuildMsg_Multipart(t *testing.T) {
	t.Parallel()

	m, err := buildMsg("robot@example.com", "Robot", Message{
		To: "ann@example.com", ToName: "Ann", Subject: "Hello", Text: "plain", HTML: "<b>html</b>",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	require.Contains(t, raw, "Subject: Hello")
	require.Contains(t, raw, `"Robot" <robot@example.com>`)
	require.Contains(t, raw, "multipart/alternative")
	require.Contains(t, raw, "text/html")

	_, err = buildMsg("not an address", "", Message{To: "a@b.c"})
	require.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	t.Parallel()

	tr, err := NewTransport(config.EmailConfig{})
	require.NoError(t, err)
	require.IsType(t, LogTransport{}, tr)

	tr, err = NewTransport(config.EmailConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"})
	require.NoError(t, err)
	require.IsType(t, &SMTPTransport{}, tr)
}
