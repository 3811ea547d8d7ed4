// email отправляет письма подтверждения e-mail и сброса пароля:
// шаблоны встроены в бинарь, доставка — SMTP (go-mail) или лог (локально).
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/pribylovaa/authenticator/internal/config"
	"github.com/pribylovaa/authenticator/internal/pkg/log"
	"github.com/pribylovaa/authenticator/internal/pkg/redact"
)

// Message — готовое к отправке письмо.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Transport доставляет письма.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPTransport отправляет письма через SMTP.
type SMTPTransport struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewSMTPTransport создаёт SMTP-клиент. Соединение открывается на каждую отправку.
func NewSMTPTransport(cfg config.EmailConfig) (*SMTPTransport, error) {
	const op = "email.sender.NewSMTPTransport"

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SMTPTransport{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

// Send отправляет multipart-письмо (text/plain + text/html).
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	const op = "email.sender.Send"

	m, err := buildMsg(t.from, t.fromName, msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func buildMsg(from, fromName string, msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}

	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	return m, nil
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch s {
	case "required":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// LogTransport пишет письмо в лог вместо отправки (локальная разработка).
// Текст письма содержит одноразовую ссылку, поэтому config.Validate не допускает его в prod.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, msg Message) error {
	log.From(ctx).Info("email_logged",
		slog.String("to", redact.Email(msg.To)),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Text),
	)

	return nil
}

// NewTransport выбирает транспорт по конфигурации: без SMTP-хоста — лог.
func NewTransport(cfg config.EmailConfig) (Transport, error) {
	if cfg.Host == "" {
		return LogTransport{}, nil
	}

	return NewSMTPTransport(cfg)
}
