package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	"github.com/oksasatya/eventhub/internal/domain/repository"
)

type RegistrationRepository struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

func (r *RegistrationRepository) Create(ctx context.Context, reg *entity.Registration) error {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO registrations (event_id, user_id, ticket_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticket_code) DO NOTHING
		RETURNING id::text, created_at
	`, reg.EventID, reg.UserID, reg.TicketCode)

	// A ticket code collision yields no row and leaves the transaction usable.
	if err := row.Scan(&reg.ID, &reg.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrTicketCodeTaken
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		if errors.Is(mapNotFound(err), repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*entity.Registration, error) {
	reg := &entity.Registration{}
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id::text, event_id::text, user_id::text, ticket_code, created_at
		FROM registrations
		WHERE event_id = $1 AND user_id = $2
	`, eventID, userID).Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.TicketCode, &reg.CreatedAt)
	if err != nil {
		if errors.Is(mapNotFound(err), repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]entity.RegisteredEvent, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT r.id::text, r.ticket_code, r.created_at,
			e.id::text, e.name, e.description, e.date, e.location
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY r.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := []entity.RegisteredEvent{}
	for rows.Next() {
		var re entity.RegisteredEvent
		if err := rows.Scan(&re.RegistrationID, &re.TicketCode, &re.RegisteredAt,
			&re.EventID, &re.Name, &re.Description, &re.Date, &re.Location); err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

var _ repository.RegistrationRepository = (*RegistrationRepository)(nil)
