package infra

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"path/filepath"

	"entrepeques/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers the store's plain-text notifications: appointment
// confirmations and valuation offers.
type Mailer struct {
	host     string
	addr     string
	user     string
	password string
	from     string
	replyTo  string
	// implicit TLS (port 465) instead of STARTTLS
	tls bool
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	if cfg.StoreName != "" && from != "" {
		from = fmt.Sprintf("%s <%s>", cfg.StoreName, from)
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		replyTo:  cfg.StoreEmail,
		tls:      cfg.SMTPPort == 465,
	}
}

// Send delivers one message. attachment is a path on local disk (the offer PDF)
// and may be empty.
func (m *Mailer) Send(to, subject, body, attachment string) error {
	if m.host == "" {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	if m.replyTo != "" {
		e.ReplyTo = []string{m.replyTo}
	}
	e.Subject = subject
	e.Text = []byte(body)

	if attachment != "" {
		a, err := e.AttachFile(attachment)
		if err != nil {
			return fmt.Errorf("mailer: attach %s: %w", filepath.Base(attachment), err)
		}
		a.ContentType = "application/pdf"
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if m.tls {
		return e.SendWithTLS(m.addr, auth, &tls.Config{ServerName: m.host, MinVersion: tls.VersionTLS12})
	}
	return e.Send(m.addr, auth)
}
