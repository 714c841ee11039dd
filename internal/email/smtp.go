// Package email delivers outbox notifications over SMTP.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"salesdesk_backend/internal/notification/outbox"
	"salesdesk_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements outbox.Sender over a direct SMTP connection.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

// Send renders the record's kind into a message body and delivers it to the
// recipient.
func (s *SMTPSender) Send(ctx context.Context, rec outbox.Record) error {
	subject := rec.Subject
	if subject == "" {
		subject = defaultSubject(rec.Kind)
	}

	body, err := renderBody(rec)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(rec.Recipient); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func defaultSubject(kind string) string {
	switch kind {
	case outbox.KindFollowUpReminder:
		return "Follow-up due"
	case outbox.KindStalePoolAlert:
		return "Leads waiting in the sales pool"
	}
	return "Sales desk notification"
}

// FollowUpReminderPayload is the body of a followup_reminder record.
type FollowUpReminderPayload struct {
	ActivityID string    `json:"activityId"`
	Subject    string    `json:"subject"`
	DueDate    time.Time `json:"dueDate"`
}

// StalePoolAlertPayload is the body of a stale_pool_alert record.
type StalePoolAlertPayload struct {
	LeadID      string    `json:"leadId"`
	CompanyName string    `json:"companyName"`
	PooledAt    time.Time `json:"pooledAt"`
}

func renderBody(rec outbox.Record) (string, error) {
	switch rec.Kind {
	case outbox.KindFollowUpReminder:
		var p FollowUpReminderPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return "", fmt.Errorf("decode reminder payload: %w", err)
		}
		return fmt.Sprintf("Your activity %q was due %s.\n\nOpen the dashboard to complete it or reschedule.",
			p.Subject, p.DueDate.Format("Mon 2 Jan 15:04")), nil

	case outbox.KindStalePoolAlert:
		var p StalePoolAlertPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return "", fmt.Errorf("decode stale pool payload: %w", err)
		}
		return fmt.Sprintf("The lead %q has been waiting in the sales pool since %s without being claimed.",
			p.CompanyName, p.PooledAt.Format("Mon 2 Jan 15:04")), nil
	}
	return "", fmt.Errorf("unknown notification kind %q", rec.Kind)
}
