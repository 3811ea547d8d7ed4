package email

import (
	"context"
	"fmt"
	"time"
)

const exactTimeLayout = "Monday January 02, 2006 at 03:04:05 PM"

// Recipient — адресат письма.
type Recipient struct {
	Email string
	Name  string
}

// Notifier собирает письма из шаблонов и передаёт их транспорту.
type Notifier struct {
	transport Transport
	renderer  *Renderer
	domain    string
	now       func() time.Time
}

// NewNotifier создаёт Notifier. domain — адрес фронтенда для текста писем.
func NewNotifier(transport Transport, domain string) (*Notifier, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	return &Notifier{transport: transport, renderer: r, domain: domain, now: time.Now}, nil
}

// SendVerification отправляет ссылку подтверждения e-mail.
func (n *Notifier) SendVerification(ctx context.Context, to Recipient, link string, ttl time.Duration) error {
	return n.send(ctx, TemplateVerification, "Please confirm your email address", to, link, ttl)
}

// SendPasswordReset отправляет ссылку смены пароля.
func (n *Notifier) SendPasswordReset(ctx context.Context, to Recipient, link string, ttl time.Duration) error {
	return n.send(ctx, TemplatePasswordReset, "Password change request", to, link, ttl)
}

func (n *Notifier) send(ctx context.Context, tpl Template, subject string, to Recipient, link string, ttl time.Duration) error {
	const op = "email.notifier.send"

	html, text, err := n.renderer.Render(tpl, Data{
		Title:             subject,
		Name:              to.Name,
		ActivationLink:    link,
		Domain:            n.domain,
		ExpirationMinutes: int(ttl / time.Minute),
		ExactTime:         n.now().Add(ttl).Format(exactTimeLayout),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := n.transport.Send(ctx, Message{
		To:      to.Email,
		ToName:  to.Name,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
