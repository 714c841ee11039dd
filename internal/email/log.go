package email

import (
	"context"

	"salesdesk_backend/internal/notification/outbox"
	"salesdesk_backend/platform/logger"
)

// LogSender records deliveries to the log instead of sending mail. It stands
// in for the SMTP sender when EMAIL_ENABLED is false, so outbox rows still
// drain in environments without a mail relay.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, rec outbox.Record) error {
	s.log.Info("email delivery skipped (EMAIL_ENABLED is false)",
		"kind", rec.Kind,
		"recipient", rec.Recipient,
		"subject", rec.Subject,
	)
	return nil
}
