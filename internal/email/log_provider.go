package email

import (
	"context"
	"strings"

	"pds_backend/internal/logger"
)

// LogProvider only logs outgoing mail. Used when no SMTP host is configured.
type LogProvider struct{}

func (LogProvider) Send(ctx context.Context, email *Email) error {
	logger.CtxInfo(ctx, "email not sent: no SMTP transport configured",
		"to", strings.Join(email.To, ","),
		"subject", email.Subject,
	)
	return nil
}

func (LogProvider) Validate() error { return nil }
