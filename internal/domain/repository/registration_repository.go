package repository

import (
	"context"

	"github.com/oksasatya/eventhub/internal/domain/entity"
)

type RegistrationRepository interface {
	// Create returns ErrDuplicate when the (event, user) pair already exists
	// and ErrTicketCodeTaken when the ticket code is in use.
	Create(ctx context.Context, r *entity.Registration) error
	// FindByEventAndUser returns nil, nil when there is no registration.
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*entity.Registration, error)
	ListByUser(ctx context.Context, userID string) ([]entity.RegisteredEvent, error)
}
