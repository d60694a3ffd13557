package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"

	"repairshop/pkg/config"
)

var ErrNotConfigured = errors.New("smtp not configured")

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// SMTPMailer sends HTML email through an authenticated SMTP relay.
// Port 465 uses implicit TLS; any other port relies on STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	replyTo  string
}

func New(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
		from:     cfg.From,
		replyTo:  cfg.ReplyTo,
	}
}

func (m *SMTPMailer) Configured() bool {
	return m != nil && m.host != "" && m.user != "" && m.password != ""
}

// Send delivers msg and returns the Message-Id it was sent with.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	if !m.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return "", errors.New("missing recipient")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = m.replyTo
	}
	if replyTo != "" {
		e.ReplyTo = []string{replyTo}
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), m.host)
	e.Headers.Set("Message-Id", messageID)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)

	var err error
	if m.port == 465 {
		err = e.SendWithTLS(addr, auth, &tls.Config{ServerName: m.host})
	} else {
		err = e.Send(addr, auth)
	}
	if err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}
