package templates

import (
	"context"
	"strings"
	"time"
)

// Brand is the sender identity stamped on every email.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	PrivacyURL     string
	TicketsURL     string
}

const displayLayout = "Monday, 02 January 2006, 15:04 MST"

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

// EventInfo is the event part of a registration email.
type EventInfo struct {
	ID          string
	Name        string
	Description string
	Location    string
	Date        time.Time
}

func WithEvent(ev EventInfo) Option {
	return func(d *EmailData) {
		d.EventID = ev.ID
		d.EventName = ev.Name
		d.EventDescription = ev.Description
		d.EventLocation = ev.Location
		if !ev.Date.IsZero() {
			d.EventDate = ev.Date.UTC()
			d.EventDateText = FormatEventDate(ev.Date, time.UTC)
		}
	}
}

func WithTicket(registrationID, code string) Option {
	return func(d *EmailData) {
		d.RegistrationID = registrationID
		d.TicketCode = code
	}
}

func setLocation(d *EmailData, loc string) {
	if s := strings.TrimSpace(loc); s != "" {
		d.Location = s
	}
}

func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		if g, err := r.Lookup(ctx, ip); err == nil {
			setLocation(d, FormatGeo(g))
		}
	}
}

// FormatEventDate renders t in loc for display in emails.
func FormatEventDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}

// NewBaseEmailData fills the brand fields, then applies opts.
func NewBaseEmailData(b Brand, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		AppName:        b.AppName,

		LogoURL:    b.LogoURL,
		SupportURL: b.SupportURL,
		PrivacyURL: b.PrivacyURL,
		TicketsURL: b.TicketsURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewRegistrationConfirmationData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, RegistrationConfirmation, name, email, opts...))
}

func NewWelcomeData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}
