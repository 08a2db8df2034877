package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	repo "github.com/oksasatya/eventhub/internal/domain/repository"
	"github.com/oksasatya/eventhub/pkg/helpers"
	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
	"github.com/oksasatya/eventhub/pkg/validation"
)

const (
	ticketCodeAttempts = 3
	defaultSearchSize  = 10
	maxSearchSize      = 50
	publishTimeout     = 3 * time.Second
)

var (
	eventsCreated          = expvar.NewInt("events_created_total")
	registrationsCreated   = expvar.NewInt("registrations_created_total")
	registrationsDuplicate = expvar.NewInt("registrations_duplicate_total")
	confirmationsQueued    = expvar.NewInt("registration_emails_queued_total")
)

// EventService owns who may create, view and register for events, and
// keeps Event.Attendees in step with the registrations table.
type EventService struct {
	Tx            repo.Transactor
	Events        repo.EventRepository
	Registrations repo.RegistrationRepository
	Logger        *logrus.Logger

	// Optional collaborators; nil disables the feature.
	Redis    *redis.Client
	CacheTTL time.Duration
	Index    EventIndexer
	Jobs     JobPublisher

	Brand       mailtpl.Brand
	MailEnabled bool

	NewTicketCode func() (string, error)
	Now           func() time.Time
}

func NewEventService(tx repo.Transactor, events repo.EventRepository, regs repo.RegistrationRepository, logger *logrus.Logger) *EventService {
	return &EventService{
		Tx:            tx,
		Events:        events,
		Registrations: regs,
		Logger:        logger,
		NewTicketCode: helpers.GenTicketCode,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *EventService) log() *logrus.Logger {
	if s.Logger == nil {
		s.Logger = helpers.NewDiscardLogger()
	}
	return s.Logger
}

func (s *EventService) cacheEnabled() bool {
	return s.Redis != nil && s.CacheTTL > 0
}

// ListEvents returns every event with its creator, in store order.
func (s *EventService) ListEvents(ctx context.Context) ([]entity.EventListing, error) {
	gen, cacheable := s.listGeneration(ctx)
	if cacheable {
		var cached []entity.EventListing
		ok, err := helpers.RedisGetJSON(ctx, s.Redis, helpers.EventsListKey(gen), &cached)
		if err != nil {
			s.log().WithError(err).Warn("events cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	events, err := s.Events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	// gen was read before the store, so a write that commits in between has
	// already bumped it and this entry is never served.
	if cacheable {
		if err := helpers.RedisSetJSON(ctx, s.Redis, helpers.EventsListKey(gen), events, s.CacheTTL); err != nil {
			s.log().WithError(err).Warn("events cache write failed")
		}
	}
	return events, nil
}

func (s *EventService) listGeneration(ctx context.Context) (int64, bool) {
	if !s.cacheEnabled() {
		return 0, false
	}
	gen, err := s.Redis.Get(ctx, helpers.EventsListGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		s.log().WithError(err).Warn("events cache generation read failed")
		return 0, false
	}
	return gen, true
}

func (s *EventService) invalidateList(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Incr(ctx, helpers.EventsListGenKey).Err(); err != nil {
		s.log().WithError(err).Warn("events cache invalidation failed")
	}
}

// GetEvent returns an event for an attendee-facing view. The creator is
// rejected with ErrOwnEvent.
func (s *EventService) GetEvent(ctx context.Context, caller Caller, eventID string) (*entity.Event, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if ev.IsOwnedBy(caller.ID) {
		return nil, ErrOwnEvent
	}
	return ev, nil
}

type CreateEventInput struct {
	Name        string
	Description string
	Date        string
	Location    string
}

// CreateEvent validates in and persists the event with the caller as creator.
// Nothing is written when validation fails.
func (s *EventService) CreateEvent(ctx context.Context, caller Caller, in CreateEventInput) (*entity.Event, error) {
	ev, err := newEvent(caller, in)
	if err != nil {
		return nil, err
	}
	if err := s.Events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	eventsCreated.Add(1)

	s.invalidateList(ctx)
	if s.Index != nil {
		if err := s.Index.IndexEvent(ctx, ev); err != nil {
			s.log().WithError(err).WithField("event_id", ev.ID).Warn("es index failed")
		}
	}
	return ev, nil
}

func newEvent(caller Caller, in CreateEventInput) (*entity.Event, error) {
	ev := &entity.Event{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		CreatedBy:   caller.ID,
	}
	date := strings.TrimSpace(in.Date)
	if ev.Name == "" || ev.Description == "" || ev.Location == "" || date == "" {
		return nil, ErrInvalidEvent
	}
	if caller.ID == "" {
		return nil, ErrInvalidCredentials
	}
	t, err := validation.ParseEventDate(date)
	if err != nil {
		return nil, ErrInvalidEventDate
	}
	ev.Date = t
	return ev, nil
}

// RegistrationResult is a new registration together with the event it
// belongs to, attendee list included.
type RegistrationResult struct {
	Registration entity.Registration
	Event        entity.Event
}

// Register records the caller's registration and adds them to the attendee
// list in one transaction. A second attempt, concurrent or not, fails with
// ErrAlreadyRegistered.
func (s *EventService) Register(ctx context.Context, caller Caller, eventID string, meta RequestMeta) (*RegistrationResult, error) {
	var res RegistrationResult
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.Events.GetByID(ctx, eventID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEventNotFound
		}
		if err != nil {
			return err
		}

		existing, err := s.Registrations.FindByEventAndUser(ctx, ev.ID, caller.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyRegistered
		}

		reg, err := s.createRegistration(ctx, ev.ID, caller.ID)
		if err != nil {
			return err
		}
		if err := s.Events.AddAttendee(ctx, ev.ID, caller.ID); err != nil {
			return err
		}
		if !ev.HasAttendee(caller.ID) {
			ev.Attendees = append(ev.Attendees, caller.ID)
		}
		res = RegistrationResult{Registration: *reg, Event: *ev}
		return nil
	})
	switch {
	case errors.Is(err, ErrAlreadyRegistered), errors.Is(err, repo.ErrDuplicate):
		registrationsDuplicate.Add(1)
		return nil, ErrAlreadyRegistered
	case errors.Is(err, ErrEventNotFound), errors.Is(err, repo.ErrNotFound):
		return nil, ErrEventNotFound
	case err != nil:
		return nil, fmt.Errorf("register for event: %w", err)
	}
	registrationsCreated.Add(1)

	s.invalidateList(ctx)
	if err := s.enqueueConfirmation(ctx, caller, &res.Event, &res.Registration, meta); err != nil && !errors.Is(err, ErrMailUnavailable) {
		s.log().WithError(err).WithFields(logrus.Fields{
			"event_id":        res.Event.ID,
			"registration_id": res.Registration.ID,
		}).Warn("enqueue registration email failed")
	}
	return &res, nil
}

func (s *EventService) createRegistration(ctx context.Context, eventID, userID string) (*entity.Registration, error) {
	gen := s.NewTicketCode
	if gen == nil {
		gen = helpers.GenTicketCode
	}
	for attempt := 0; attempt < ticketCodeAttempts; attempt++ {
		code, err := gen()
		if err != nil {
			return nil, fmt.Errorf("generate ticket code: %w", err)
		}
		reg := &entity.Registration{EventID: eventID, UserID: userID, TicketCode: code}
		err = s.Registrations.Create(ctx, reg)
		if errors.Is(err, repo.ErrTicketCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return reg, nil
	}
	return nil, fmt.Errorf("no free ticket code after %d attempts", ticketCodeAttempts)
}

func (s *EventService) enqueueConfirmation(ctx context.Context, caller Caller, ev *entity.Event, reg *entity.Registration, meta RequestMeta) error {
	if !s.MailEnabled || s.Jobs == nil || caller.Email == "" {
		return ErrMailUnavailable
	}
	data := mailtpl.NewRegistrationConfirmationData(s.Brand, caller.Username, caller.Email,
		mailtpl.WithEvent(mailtpl.EventInfo{
			ID:          ev.ID,
			Name:        ev.Name,
			Description: ev.Description,
			Location:    ev.Location,
			Date:        ev.Date,
		}),
		mailtpl.WithTicket(reg.ID, reg.TicketCode),
		mailtpl.WithIP(meta.IP),
		mailtpl.WithUserAgent(meta.UserAgent),
		mailtpl.WithTime(s.now()),
	)
	job := mailer.EmailJob{
		To:       caller.Email,
		Template: mailtpl.RegistrationConfirmation,
		Data:     data,
	}

	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.Jobs.PublishJSON(c, job); err != nil {
		return err
	}
	confirmationsQueued.Add(1)
	return nil
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ListMyCreatedEvents returns the events the caller created.
func (s *EventService) ListMyCreatedEvents(ctx context.Context, caller Caller) ([]entity.Event, error) {
	events, err := s.Events.ListByCreator(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list created events: %w", err)
	}
	return events, nil
}

// ListMyRegistrations returns the caller's registrations expanded to their events.
func (s *EventService) ListMyRegistrations(ctx context.Context, caller Caller) ([]entity.RegisteredEvent, error) {
	regs, err := s.Registrations.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListAttendees returns the attendees of an event the caller created. A
// missing event and someone else's event both yield ErrAttendeesNotFound.
func (s *EventService) ListAttendees(ctx context.Context, caller Caller, eventID string) ([]entity.UserRef, error) {
	attendees, err := s.Events.ListAttendees(ctx, eventID, caller.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAttendeesNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return attendees, nil
}

// Ticket is what an attendee presents at the door.
type Ticket struct {
	Registration entity.Registration
	Event        entity.Event
	Attendee     Caller
}

// Ticket returns the caller's ticket for eventID.
func (s *EventService) Ticket(ctx context.Context, caller Caller, eventID string) (*Ticket, error) {
	ev, err := s.Events.GetByID(ctx, eventID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	reg, err := s.Registrations.FindByEventAndUser(ctx, ev.ID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	if reg == nil {
		return nil, ErrNotRegistered
	}
	return &Ticket{Registration: *reg, Event: *ev, Attendee: caller}, nil
}

// ResendTicketEmail queues the confirmation email for an existing registration again.
func (s *EventService) ResendTicketEmail(ctx context.Context, caller Caller, eventID string, meta RequestMeta) error {
	t, err := s.Ticket(ctx, caller, eventID)
	if err != nil {
		return err
	}
	return s.enqueueConfirmation(ctx, caller, &t.Event, &t.Registration, meta)
}

// SearchEvents runs q against the search index and loads the matches from
// the store, keeping relevance order. Without an index the result is empty.
func (s *EventService) SearchEvents(ctx context.Context, q string, size int) ([]entity.EventListing, error) {
	q = strings.TrimSpace(q)
	if q == "" || s.Index == nil {
		return []entity.EventListing{}, nil
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	ids, err := s.Index.SearchEvents(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	if len(ids) == 0 {
		return []entity.EventListing{}, nil
	}
	listings, err := s.Events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load search results: %w", err)
	}
	return listings, nil
}

// ReconcileAttendees rebuilds every attendee list from the registrations
// table and returns how many events changed.
func (s *EventService) ReconcileAttendees(ctx context.Context) (int64, error) {
	var changed int64
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.Events.RebuildAttendees(ctx)
		changed = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("reconcile attendees: %w", err)
	}
	if changed > 0 {
		s.invalidateList(ctx)
	}
	s.log().WithField("changed", changed).Info("attendee lists reconciled")
	return changed, nil
}

// ReindexEvents writes every stored event to the search index and returns
// how many were indexed. Events created while the index was unreachable
// become searchable this way.
func (s *EventService) ReindexEvents(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, ErrSearchUnavailable
	}
	listings, err := s.Events.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex events: %w", err)
	}
	indexed := 0
	for i := range listings {
		ev := listings[i].Event
		if err := s.Index.IndexEvent(ctx, &ev); err != nil {
			return indexed, fmt.Errorf("reindex event %s: %w", ev.ID, err)
		}
		indexed++
	}
	s.log().WithField("indexed", indexed).Info("events reindexed")
	return indexed, nil
}
