package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

type outcome int

const (
	ack     outcome = iota
	drop            // nack without requeue
	requeue         // nack and requeue
)

const sendTimeout = 15 * time.Second

type processor struct {
	Sender   mailer.Sender
	Resolver mailtpl.GeoResolver
	Logger   *logrus.Logger
}

// process renders and sends one queued job. Malformed jobs are dropped;
// a failed send is requeued once and dropped on redelivery.
func (p *processor) process(ctx context.Context, body []byte, redelivered bool) outcome {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		p.Logger.WithError(err).Warn("bad message")
		return drop
	}
	if err := job.Validate(); err != nil {
		p.Logger.WithError(err).WithField("template", job.Template).Warn("invalid job")
		return drop
	}

	helpers.NormalizeTemplate(&job)
	helpers.EnsureRecipientAndEmail(&job)
	helpers.LocalizeTimesIfPossible(ctx, p.Resolver, job.Data)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			p.Logger.WithField("template", job.Template).Warn("unknown template")
			return drop
		}
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			p.Logger.WithError(err).WithField("template", job.Template).Error("render failed")
			return drop
		}
		if subject == "" {
			subject = s
		}
		text, html = t, h
	}
	if subject == "" {
		subject = helpers.SubjectFallback(job.Template, job.Data)
	}

	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := p.Sender.Send(c, job.To, subject, text, html); err != nil {
		entry := p.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "template": job.Template})
		if redelivered {
			entry.Error("send failed again; dropping")
			return drop
		}
		entry.Warn("send failed; requeueing")
		return requeue
	}
	p.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	return ack
}
