package mailer

import (
	"errors"
	"strings"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "registration_confirmation", "welcome"
	Data     map[string]any `json:"data,omitempty"`
}

var ErrInvalidJob = errors.New("invalid email job")

// Validate rejects jobs the worker can never deliver.
func (j EmailJob) Validate() error {
	if strings.TrimSpace(j.To) == "" || !strings.Contains(j.To, "@") {
		return ErrInvalidJob
	}
	if j.Template == "" && j.Text == "" && j.HTML == "" {
		return ErrInvalidJob
	}
	return nil
}
