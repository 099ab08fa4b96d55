package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	SubjectVerification  = "Verify Your PDS Account"
	SubjectPasswordReset = "PDS Password Reset Request"
	SubjectWelcome       = "Welcome to PDS"
)

// Mailer renders account emails and hands them to a Provider.
type Mailer struct {
	provider    Provider
	renderer    TemplateRenderer
	frontendURL string
}

func NewMailer(provider Provider, renderer TemplateRenderer, frontendURL string) *Mailer {
	return &Mailer{
		provider:    provider,
		renderer:    renderer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

func (m *Mailer) SendVerification(ctx context.Context, to, name, token string, ttl time.Duration) error {
	return m.send(ctx, to, SubjectVerification, "verification", TemplateData{
		"Name":      name,
		"Link":      m.link("/verify-email", token),
		"ExpiresIn": humanDuration(ttl),
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, token string, ttl time.Duration) error {
	return m.send(ctx, to, SubjectPasswordReset, "password_reset", TemplateData{
		"Name":      name,
		"Link":      m.link("/reset-password", token),
		"ExpiresIn": humanDuration(ttl),
	})
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, to, SubjectWelcome, "welcome", TemplateData{
		"Name": name,
		"Link": m.frontendURL + "/login",
	})
}

func (m *Mailer) send(ctx context.Context, to, subject, tpl string, data TemplateData) error {
	body, err := m.renderer.Render(tpl, data)
	if err != nil {
		return err
	}
	return m.provider.Send(ctx, &Email{To: []string{to}, Subject: subject, HTMLBody: body})
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
