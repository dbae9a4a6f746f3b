package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"marketadmin/internal/config"
)

// EmailSender отправляет письма через SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailSender возвращает nil, если SMTP не настроен.
func NewEmailSender(cfg *config.Config) *EmailSender {
	if cfg.SMTPHost == "" {
		return nil
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUsername
	}
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   from,
	}
}

func (s *EmailSender) Channel() Channel { return ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := buildEmail(s.from, to, msg)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

func buildEmail(from string, to Recipient, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	if to.Name != "" {
		m.SetAddressHeader("To", to.Email, to.Name)
	} else {
		m.SetHeader("To", to.Email)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
