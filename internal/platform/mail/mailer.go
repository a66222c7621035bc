package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gomail "gopkg.in/gomail.v2"
)

// Attachment carries an in-memory file to attach to an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message describes a single outbound email.
type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Sender delivers outbound email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts ordinary functions to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send delivers the message using the wrapped function.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	dialer   dialer
	fromName string
	fromAddr string
}

// SMTPConfig collects the relay settings needed to construct an SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	FromAddr string
}

// NewSMTPSender constructs a Sender backed by the configured SMTP relay.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("mail: smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("mail: smtp port is required")
	}
	fromAddr := strings.TrimSpace(cfg.FromAddr)
	if fromAddr == "" {
		fromAddr = strings.TrimSpace(cfg.Username)
	}
	if fromAddr == "" {
		return nil, errors.New("mail: from address is required")
	}

	return &SMTPSender{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromName: strings.TrimSpace(cfg.FromName),
		fromAddr: fromAddr,
	}, nil
}

// Send delivers the message, honouring context cancellation before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s == nil || s.dialer == nil {
		return errors.New("mail: sender not initialised")
	}
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("mail: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	if s.fromName != "" {
		m.SetAddressHeader("From", s.fromAddr, s.fromName)
	} else {
		m.SetHeader("From", s.fromAddr)
	}
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	for _, att := range msg.Attachments {
		if len(att.Data) == 0 || strings.TrimSpace(att.Filename) == "" {
			continue
		}
		data := att.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := io.Copy(w, bytes.NewReader(data))
				return err
			}),
		}
		if ct := strings.TrimSpace(att.ContentType); ct != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {ct},
			}))
		}
		m.Attach(att.Filename, settings...)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}
