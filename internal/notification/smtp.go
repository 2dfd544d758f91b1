package notification

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// SMTPSender delivers mail over plain SMTP.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPSender creates a Sender backed by the given SMTP relay.
func NewSMTPSender(host, port, username, password, from string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send builds an RFC 822 message and submits it to the relay.
func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	log.Printf("Sending email: to=%s subject=%q", email.To, email.Subject)

	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + email.To + "\r\n" +
		"Subject: " + email.Subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		email.Body + "\r\n")

	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	return smtp.SendMail(addr, auth, s.from, []string{email.To}, msg)
}
