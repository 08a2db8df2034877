package mailer

import (
	"context"
	"errors"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

var ErrNotConfigured = errors.New("mailgun is not configured")

const sendTimeout = 10 * time.Second

// Mailgun sends ticket and welcome emails through the Mailgun HTTP API.
type Mailgun struct {
	Sender string
	client *mg.MailgunImpl
}

// NewMailgun returns a sender for domain. apiBase selects the region
// (mg.APIBaseEU for EU domains); empty keeps the US default.
func NewMailgun(domain, apiKey, sender, apiBase string) *Mailgun {
	m := &Mailgun{Sender: sender}
	if domain == "" || apiKey == "" {
		return m
	}
	m.client = mg.NewMailgun(domain, apiKey)
	if apiBase != "" {
		m.client.SetAPIBase(apiBase)
	}
	return m
}

// Send sends one message. html is optional; text is always attached as the
// plain-text part.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	if m.client == nil {
		return ErrNotConfigured
	}
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}
