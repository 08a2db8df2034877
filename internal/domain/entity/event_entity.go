package entity

import "time"

// Event is an organizer-created activity others can register for.
// Attendees mirrors the set of users holding a Registration for the event;
// it only grows and CreatedBy never changes after insert.
type Event struct {
	ID          string
	Name        string
	Description string
	Date        time.Time
	Location    string
	CreatedBy   string
	Attendees   []string
	CreatedAt   time.Time
}

// IsOwnedBy reports whether userID created the event.
func (e *Event) IsOwnedBy(userID string) bool {
	return e != nil && userID != "" && e.CreatedBy == userID
}

// HasAttendee reports whether userID is in the attendee list.
func (e *Event) HasAttendee(userID string) bool {
	for _, id := range e.Attendees {
		if id == userID {
			return true
		}
	}
	return false
}

// EventListing is an event with its creator resolved for public listings.
type EventListing struct {
	Event   Event
	Creator UserRef
}
