// Package mailer sends plain-text email over SMTP for the mail service.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/quickchat/internal/config"
)

type Sender struct {
	cfg *config.SMTPConfig
}

func NewSender(cfg *config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

// Send delivers a plain-text message. smtp.SendMail has no context support,
// so it runs in a goroutine and the caller's deadline wins.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("mailer: SMTP is not configured")
	}
	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.Username
	}
	var buf bytes.Buffer
	buf.WriteString("From: " + s.cfg.FromName + " <" + from + ">\r\n")
	buf.WriteString("To: " + to + "\r\n")
	buf.WriteString("Subject: " + subject + "\r\n")
	buf.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, from, []string{to}, buf.Bytes()) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
