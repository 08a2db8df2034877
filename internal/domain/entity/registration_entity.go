package entity

import "time"

// Registration links one user to one event. At most one exists per
// (EventID, UserID) pair.
type Registration struct {
	ID         string
	EventID    string
	UserID     string
	TicketCode string
	CreatedAt  time.Time
}

// RegisteredEvent is a registration expanded to the event it points at.
// EventID, not RegistrationID, identifies the event.
type RegisteredEvent struct {
	RegistrationID string
	TicketCode     string
	RegisteredAt   time.Time

	EventID     string
	Name        string
	Description string
	Date        time.Time
	Location    string
}
