package transports

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailTransport delivers notifications over SMTP with STARTTLS
type EmailTransport struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// NewEmailTransport creates a new EmailTransport
func NewEmailTransport(host, port, username, password, from, fromName string) *EmailTransport {
	return &EmailTransport{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		FromName: fromName,
	}
}

// Send delivers one email to the recipient address
func (t *EmailTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("email transport: empty recipient address")
	}

	client, err := smtp.Dial(t.Host + ":" + t.Port)
	if err != nil {
		return fmt.Errorf("email transport: dial: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: t.Host}); err != nil {
			return fmt.Errorf("email transport: starttls: %w", err)
		}
	}

	auth := smtp.PlainAuth("", t.Username, t.Password, t.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("email transport: auth: %w", err)
	}

	if err := client.Mail(t.From); err != nil {
		return fmt.Errorf("email transport: mail from: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("email transport: rcpt to: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("email transport: data: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", t.FromName, t.From)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if _, err := wc.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("email transport: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("email transport: close body: %w", err)
	}

	return client.Quit()
}
