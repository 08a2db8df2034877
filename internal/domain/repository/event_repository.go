package repository

import (
	"context"

	"github.com/oksasatya/eventhub/internal/domain/entity"
)

// EventRepository persists events and their denormalized attendee list.
type EventRepository interface {
	Create(ctx context.Context, e *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	List(ctx context.Context) ([]entity.EventListing, error)
	ListByIDs(ctx context.Context, ids []string) ([]entity.EventListing, error)
	ListByCreator(ctx context.Context, userID string) ([]entity.Event, error)

	// AddAttendee appends userID to the attendee set. Appending a present
	// id is a no-op. Returns ErrNotFound for an unknown event.
	AddAttendee(ctx context.Context, eventID, userID string) error

	// ListAttendees returns the attendees of eventID when it was created by
	// ownerID, and ErrNotFound otherwise.
	ListAttendees(ctx context.Context, eventID, ownerID string) ([]entity.UserRef, error)

	// RebuildAttendees recomputes every attendee list from registrations and
	// returns the number of events whose list changed.
	RebuildAttendees(ctx context.Context) (int64, error)
}
