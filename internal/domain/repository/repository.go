package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")

	ErrTicketCodeTaken = errors.New("ticket code taken")
)

// Transactor runs fn inside a single unit of work. Repositories called with
// the context passed to fn take part in the same transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
