package application

import "errors"

// Messages of these errors are shown to API clients as is.
var (
	ErrEventNotFound     = errors.New("Event not found")
	ErrOwnEvent          = errors.New("This event is created by you")
	ErrAlreadyRegistered = errors.New("You are already registered for this event")
	ErrAttendeesNotFound = errors.New("Event not found or not authorized to view attendees")
	ErrInvalidEvent      = errors.New("All fields are required")
	ErrInvalidEventDate  = errors.New("Invalid event date")
	ErrNotRegistered     = errors.New("You are not registered for this event")
	ErrMailUnavailable   = errors.New("Email delivery is not available")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("User already exists")
	ErrInvalidSignup      = errors.New("username, email and password are required")
	ErrStorageUnavailable = errors.New("file storage is not configured")
	ErrSearchUnavailable  = errors.New("search index is not configured")
)
