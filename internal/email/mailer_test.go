package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProvider struct {
	sent []*Email
	err  error
}

func (p *captureProvider) Send(_ context.Context, e *Email) error {
	p.sent = append(p.sent, e)
	return p.err
}

func (p *captureProvider) Validate() error { return nil }

func newTestMailer(t *testing.T, p Provider) *Mailer {
	t.Helper()
	tm, err := NewDefaultTemplateManager()
	require.NoError(t, err)
	return NewMailer(p, tm, "https://pds.example.com/")
}

func TestMailer_SendVerification(t *testing.T) {
	p := &captureProvider{}
	m := newTestMailer(t, p)

	require.NoError(t, m.SendVerification(context.Background(), "a@b.com", "Ann", "tok123", 24*time.Hour))

	require.Len(t, p.sent, 1)
	msg := p.sent[0]
	assert.Equal(t, []string{"a@b.com"}, msg.To)
	assert.Equal(t, SubjectVerification, msg.Subject)
	assert.Contains(t, msg.HTMLBody, "https://pds.example.com/verify-email?token=tok123")
	assert.Contains(t, msg.HTMLBody, "24 hours")
}

func TestMailer_SendPasswordReset(t *testing.T) {
	p := &captureProvider{}
	m := newTestMailer(t, p)

	require.NoError(t, m.SendPasswordReset(context.Background(), "a@b.com", "Ann", "r1", time.Hour))

	require.Len(t, p.sent, 1)
	assert.Equal(t, SubjectPasswordReset, p.sent[0].Subject)
	assert.Contains(t, p.sent[0].HTMLBody, "/reset-password?token=r1")
	assert.Contains(t, p.sent[0].HTMLBody, "1 hour")
}

func TestMailer_PropagatesTransportError(t *testing.T) {
	p := &captureProvider{err: errors.New("boom")}
	m := newTestMailer(t, p)

	err := m.SendWelcome(context.Background(), "a@b.com", "Ann")
	assert.EqualError(t, err, "boom")
}

func TestSMTPProvider_Validate(t *testing.T) {
	assert.Error(t, NewSMTPProvider(&SMTPConfig{Port: 587, FromEmail: "x@y"}).Validate())
	assert.Error(t, NewSMTPProvider(&SMTPConfig{Host: "smtp", Port: 0, FromEmail: "x@y"}).Validate())
	assert.NoError(t, NewSMTPProvider(&SMTPConfig{Host: "smtp", Port: 587, FromEmail: "x@y"}).Validate())
}
