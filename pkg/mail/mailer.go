package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rmarin-dev/shopline-backend/pkg/config"
	"github.com/rmarin-dev/shopline-backend/pkg/logger"
)

// Message is a plain-text outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional mail. The orders and auth services only
// depend on this surface so tests can swap in a recorder.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through a configured SMTP relay.
type SMTPSender struct {
	cfg  config.MailConfig
	logg *logger.Logger
}

// NewSender returns an SMTP-backed sender, or a log-only sender when
// mail is not configured (dev environments).
func NewSender(cfg config.MailConfig, logg *logger.Logger) Sender {
	if !cfg.Enabled() {
		return &logSender{logg: logg}
	}
	return &SMTPSender{cfg: cfg, logg: logg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail recipient is required")
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	from := s.cfg.FromAddress
	headers := []string{
		fmt.Sprintf("From: %s <%s>", s.cfg.FromName, from),
		fmt.Sprintf("To: %s", msg.To),
		fmt.Sprintf("Subject: %s", msg.Subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	payload := strings.Join(headers, "\r\n") + "\r\n\r\n" + msg.Body

	if err := smtp.SendMail(addr, auth, from, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("mail sent: %s", msg.Subject))
	}
	return nil
}

// logSender records mail to the log stream instead of delivering it.
type logSender struct {
	logg *logger.Logger
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		s.logg.Info(ctx, "mail delivery skipped (smtp not configured)")
	}
	return nil
}

// PasswordResetMessage renders the OTP mail sent during password reset.
func PasswordResetMessage(to, code string, ttlMinutes int) Message {
	body := fmt.Sprintf(
		"Your password reset code is %s.\n\nIt expires in %d minutes. If you did not request a reset, you can ignore this email.",
		code, ttlMinutes,
	)
	return Message{
		To:      to,
		Subject: "Your password reset code",
		Body:    body,
	}
}

// OrderConfirmationMessage renders the receipt mail sent after checkout.
func OrderConfirmationMessage(to, reference, total string) Message {
	body := fmt.Sprintf(
		"Thanks for your order %s.\n\nOrder total: %s. We will email you again when it ships.",
		reference, total,
	)
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Order confirmation %s", reference),
		Body:    body,
	}
}
