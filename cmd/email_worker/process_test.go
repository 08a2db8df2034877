package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

type sent struct{ to, subject, text, html string }

type fakeSender struct {
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject, text, html})
	return nil
}

func newProcessor(s mailer.Sender) *processor {
	return &processor{Sender: s, Logger: helpers.NewDiscardLogger()}
}

func encode(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestProcessRendersRegistrationTemplate(t *testing.T) {
	s := &fakeSender{}
	data := mailtpl.NewRegistrationConfirmationData(mailtpl.Brand{AppName: "eventhub"}, "ada", "ada@example.com",
		mailtpl.WithEvent(mailtpl.EventInfo{ID: "e1", Name: "Go Meetup", Location: "Main Hall", Date: time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)}),
	)
	data["TicketCode"] = "ABCD2345"

	got := newProcessor(s).process(context.Background(), encode(t, mailer.EmailJob{
		To:       "ada@example.com",
		Template: "ticket",
		Data:     data,
	}), false)
	if got != ack {
		t.Fatalf("expected ack, got %v", got)
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(s.sent))
	}
	m := s.sent[0]
	if m.subject == "" || !strings.Contains(m.text+m.html, "ABCD2345") {
		t.Fatalf("ticket code missing from email %+v", m)
	}
}

func TestProcessPlainJobKeepsSubject(t *testing.T) {
	s := &fakeSender{}
	got := newProcessor(s).process(context.Background(), encode(t, mailer.EmailJob{
		To:      "ada@example.com",
		Subject: "Hello",
		Text:    "plain body",
	}), false)
	if got != ack || len(s.sent) != 1 || s.sent[0].subject != "Hello" || s.sent[0].text != "plain body" {
		t.Fatalf("unexpected result %v %+v", got, s.sent)
	}
}

func TestProcessDropsBadJobs(t *testing.T) {
	s := &fakeSender{}
	p := newProcessor(s)
	for name, body := range map[string][]byte{
		"not json":         []byte("{"),
		"no recipient":     encode(t, mailer.EmailJob{Text: "x"}),
		"no content":       encode(t, mailer.EmailJob{To: "ada@example.com"}),
		"unknown template": encode(t, mailer.EmailJob{To: "ada@example.com", Template: "password_reset"}),
	} {
		if got := p.process(context.Background(), body, false); got != drop {
			t.Errorf("%s: expected drop, got %v", name, got)
		}
	}
	if len(s.sent) != 0 {
		t.Fatalf("nothing should be sent, got %+v", s.sent)
	}
}

func TestProcessSendFailureRequeuesOnce(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun down")}
	p := newProcessor(s)
	body := encode(t, mailer.EmailJob{To: "ada@example.com", Text: "hi"})

	if got := p.process(context.Background(), body, false); got != requeue {
		t.Fatalf("first failure: expected requeue, got %v", got)
	}
	if got := p.process(context.Background(), body, true); got != drop {
		t.Fatalf("redelivered failure: expected drop, got %v", got)
	}
}
