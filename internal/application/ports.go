package application

import (
	"context"
	"io"

	"github.com/oksasatya/eventhub/internal/domain/entity"
)

// Caller is the authenticated user a request acts on behalf of.
type Caller struct {
	ID       string
	Username string
	Email    string
}

// RequestMeta carries client details used for notification emails.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// JobPublisher enqueues background jobs. Implemented by helpers.RabbitPublisher.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EventIndexer is the search side of events. Implemented by search.EventIndex.
type EventIndexer interface {
	IndexEvent(ctx context.Context, ev *entity.Event) error
	SearchEvents(ctx context.Context, q string, size int) ([]string, error)
}

// ObjectStore uploads files and returns their public URL. Implemented by helpers.GCSUploader.
type ObjectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}
