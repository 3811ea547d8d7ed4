package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templatesFS embed.FS

// Template — имя пары шаблонов (templates/<name>.html и .txt).
type Template string

const (
	TemplateVerification  Template = "verification_email"
	TemplatePasswordReset Template = "password_reset_email"
)

// Data — переменные шаблонов писем.
type Data struct {
	Title             string
	Name              string
	ActivationLink    string
	Domain            string
	ExpirationMinutes int
	ExactTime         string
}

// Renderer рендерит HTML- и текстовую части письма из встроенных шаблонов.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewRenderer разбирает встроенные шаблоны.
func NewRenderer() (*Renderer, error) {
	const op = "email.templates.NewRenderer"

	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Renderer{html: html, text: text}, nil
}

// Render возвращает HTML- и текстовое тело письма.
func (r *Renderer) Render(name Template, data Data) (string, string, error) {
	const op = "email.templates.Render"

	var hb, tb bytes.Buffer
	if err := r.html.ExecuteTemplate(&hb, string(name)+".html", data); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	if err := r.text.ExecuteTemplate(&tb, string(name)+".txt", data); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}

	return hb.String(), tb.String(), nil
}
