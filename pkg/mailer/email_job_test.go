package mailer

import (
	"context"
	"errors"
	"testing"
)

func TestEmailJobValidate(t *testing.T) {
	tests := []struct {
		name string
		job  EmailJob
		ok   bool
	}{
		{"template", EmailJob{To: "a@example.com", Template: "welcome"}, true},
		{"plain text", EmailJob{To: "a@example.com", Text: "hi"}, true},
		{"missing recipient", EmailJob{Template: "welcome"}, false},
		{"bad recipient", EmailJob{To: "nobody", Template: "welcome"}, false},
		{"empty body", EmailJob{To: "a@example.com"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidJob) {
				t.Fatalf("expected ErrInvalidJob, got %v", err)
			}
		})
	}
}

func TestMailgunRequiresConfiguration(t *testing.T) {
	m := NewMailgun("", "", "noreply@example.com", "")
	if err := m.Send(context.Background(), "a@example.com", "s", "t", ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
