package handlers

import (
	"time"

	"github.com/oksasatya/eventhub/internal/application"
	"github.com/oksasatya/eventhub/internal/domain/entity"
)

type createEventRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	Date        string `json:"date" binding:"required,eventdate"`
	Location    string `json:"location" binding:"required"`
}

type creatorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	CreatedBy   string    `json:"created_by"`
	Attendees   []string  `json:"attendees"`
	CreatedAt   time.Time `json:"created_at"`
}

type eventListingResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Location    string          `json:"location"`
	CreatedBy   creatorResponse `json:"created_by"`
	Attendees   []string        `json:"attendees"`
	CreatedAt   time.Time       `json:"created_at"`
}

// registeredEventResponse is event shaped: ID is the event id.
type registeredEventResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Location       string    `json:"location"`
	RegistrationID string    `json:"registration_id"`
	TicketCode     string    `json:"ticket_code"`
	RegisteredAt   time.Time `json:"registered_at"`
}

type attendeeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type registrationResponse struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	TicketCode string    `json:"ticket_code"`
	CreatedAt  time.Time `json:"created_at"`
}

type registerResponse struct {
	Registration registrationResponse `json:"registration"`
	Event        eventResponse        `json:"event"`
}

type ticketResponse struct {
	RegistrationID string           `json:"registration_id"`
	TicketCode     string           `json:"ticket_code"`
	EventID        string           `json:"event_id"`
	EventName      string           `json:"event_name"`
	Date           time.Time        `json:"date"`
	Location       string           `json:"location"`
	Attendee       attendeeResponse `json:"attendee"`
	IssuedAt       time.Time        `json:"issued_at"`
}

func toEventResponse(ev *entity.Event) eventResponse {
	attendees := ev.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	return eventResponse{
		ID:          ev.ID,
		Name:        ev.Name,
		Description: ev.Description,
		Date:        ev.Date,
		Location:    ev.Location,
		CreatedBy:   ev.CreatedBy,
		Attendees:   attendees,
		CreatedAt:   ev.CreatedAt,
	}
}

func toEventResponses(events []entity.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}

func toListingResponses(listings []entity.EventListing) []eventListingResponse {
	out := make([]eventListingResponse, 0, len(listings))
	for _, l := range listings {
		ev := toEventResponse(&l.Event)
		out = append(out, eventListingResponse{
			ID:          ev.ID,
			Name:        ev.Name,
			Description: ev.Description,
			Date:        ev.Date,
			Location:    ev.Location,
			CreatedBy:   creatorResponse{ID: l.Creator.ID, Username: l.Creator.Username},
			Attendees:   ev.Attendees,
			CreatedAt:   ev.CreatedAt,
		})
	}
	return out
}

func toRegisteredEventResponses(regs []entity.RegisteredEvent) []registeredEventResponse {
	out := make([]registeredEventResponse, 0, len(regs))
	for _, r := range regs {
		out = append(out, registeredEventResponse{
			ID:             r.EventID,
			Name:           r.Name,
			Description:    r.Description,
			Date:           r.Date,
			Location:       r.Location,
			RegistrationID: r.RegistrationID,
			TicketCode:     r.TicketCode,
			RegisteredAt:   r.RegisteredAt,
		})
	}
	return out
}

func toAttendeeResponses(users []entity.UserRef) []attendeeResponse {
	out := make([]attendeeResponse, 0, len(users))
	for _, u := range users {
		out = append(out, attendeeResponse{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return out
}

func toRegistrationResponse(r entity.Registration) registrationResponse {
	return registrationResponse{
		ID:         r.ID,
		EventID:    r.EventID,
		UserID:     r.UserID,
		TicketCode: r.TicketCode,
		CreatedAt:  r.CreatedAt,
	}
}

func toTicketResponse(t *application.Ticket) ticketResponse {
	return ticketResponse{
		RegistrationID: t.Registration.ID,
		TicketCode:     t.Registration.TicketCode,
		EventID:        t.Event.ID,
		EventName:      t.Event.Name,
		Date:           t.Event.Date,
		Location:       t.Event.Location,
		Attendee:       attendeeResponse{ID: t.Attendee.ID, Username: t.Attendee.Username, Email: t.Attendee.Email},
		IssuedAt:       t.Registration.CreatedAt,
	}
}
