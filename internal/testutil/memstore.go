package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	"github.com/oksasatya/eventhub/internal/domain/repository"
)

// MemStore is an in-memory implementation of the user, event and
// registration repositories plus the transactor. WithTx restores the
// previous state when fn fails, so it behaves like a rolled back
// transaction. Transactions run one at a time.
type MemStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users         map[string]entity.User
	events        map[string]entity.Event
	eventOrder    []string
	registrations []entity.Registration

	// Writes counts successful mutating calls.
	Writes int

	// Optional failure injection, keyed by operation name
	// ("users.create", "events.create", "events.add_attendee",
	// "registrations.create", "events.list", ...).
	Fail map[string]error

	Now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:  map[string]entity.User{},
		events: map[string]entity.Event{},
		Fail:   map[string]error{},
		Now:    func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func (s *MemStore) Users() repository.UserRepository                 { return memUsers{s} }
func (s *MemStore) Events() repository.EventRepository               { return memEvents{s} }
func (s *MemStore) Registrations() repository.RegistrationRepository { return memRegistrations{s} }

func (s *MemStore) fail(op string) error {
	if s.Fail == nil {
		return nil
	}
	return s.Fail[op]
}

type snapshot struct {
	users         map[string]entity.User
	events        map[string]entity.Event
	eventOrder    []string
	registrations []entity.Registration
	writes        int
}

func (s *MemStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		users:         make(map[string]entity.User, len(s.users)),
		events:        make(map[string]entity.Event, len(s.events)),
		eventOrder:    append([]string(nil), s.eventOrder...),
		registrations: append([]entity.Registration(nil), s.registrations...),
		writes:        s.Writes,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.events {
		v.Attendees = append([]string(nil), v.Attendees...)
		snap.events[k] = v
	}
	return snap
}

func (s *MemStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.events = snap.events
	s.eventOrder = snap.eventOrder
	s.registrations = snap.registrations
	s.Writes = snap.writes
}

type txKey struct{}

func (s *MemStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// SeedUser stores a user and returns it with ID filled.
func (s *MemStore) SeedUser(username string) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := entity.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Password:  "hash",
		CreatedAt: s.Now(),
		UpdatedAt: s.Now(),
	}
	s.users[u.ID] = u
	return u
}

// SeedEvent stores an event owned by ownerID.
func (s *MemStore) SeedEvent(ownerID, name string) entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := entity.Event{
		ID:          uuid.NewString(),
		Name:        name,
		Description: name + " description",
		Date:        s.Now().Add(7 * 24 * time.Hour),
		Location:    "Main Hall",
		CreatedBy:   ownerID,
		Attendees:   []string{},
		CreatedAt:   s.Now(),
	}
	s.events[ev.ID] = ev
	s.eventOrder = append(s.eventOrder, ev.ID)
	return ev
}

// Event returns a copy of the stored event.
func (s *MemStore) Event(id string) (entity.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if ok {
		ev.Attendees = append([]string(nil), ev.Attendees...)
	}
	return ev, ok
}

// RegistrationsFor returns all registrations for the pair.
func (s *MemStore) RegistrationsFor(eventID, userID string) []entity.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Registration
	for _, r := range s.registrations {
		if r.EventID == eventID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// CorruptAttendees overwrites an attendee list, simulating drift.
func (s *MemStore) CorruptAttendees(eventID string, attendees []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := s.events[eventID]
	ev.Attendees = attendees
	s.events[eventID] = ev
}

type memUsers struct{ s *MemStore }

func (r memUsers) Create(_ context.Context, u *entity.User) error {
	s := r.s
	if err := s.fail("users.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	s.Writes++
	return nil
}

func (r memUsers) GetByID(_ context.Context, id string) (*entity.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	s := r.s
	if err := s.fail("users.get_by_email"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) Update(_ context.Context, u *entity.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = s.Now()
	s.users[u.ID] = *u
	s.Writes++
	return nil
}

type memEvents struct{ s *MemStore }

func (r memEvents) Create(_ context.Context, e *entity.Event) error {
	s := r.s
	if err := s.fail("events.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.CreatedBy]; !ok {
		return fmt.Errorf("create event: unknown creator %q", e.CreatedBy)
	}
	e.ID = uuid.NewString()
	e.Attendees = []string{}
	e.CreatedAt = s.Now()
	s.events[e.ID] = *e
	s.eventOrder = append(s.eventOrder, e.ID)
	s.Writes++
	return nil
}

func (r memEvents) GetByID(_ context.Context, id string) (*entity.Event, error) {
	s := r.s
	if err := s.fail("events.get"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ev.Attendees = append([]string{}, ev.Attendees...)
	return &ev, nil
}

func (r memEvents) listing(id string) entity.EventListing {
	s := r.s
	ev := s.events[id]
	ev.Attendees = append([]string{}, ev.Attendees...)
	creator := s.users[ev.CreatedBy]
	return entity.EventListing{Event: ev, Creator: entity.UserRef{ID: creator.ID, Username: creator.Username}}
}

func (r memEvents) List(_ context.Context) ([]entity.EventListing, error) {
	s := r.s
	if err := s.fail("events.list"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.EventListing, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, r.listing(id))
	}
	return out, nil
}

func (r memEvents) ListByIDs(_ context.Context, ids []string) ([]entity.EventListing, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.EventListing, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.events[id]; ok {
			out = append(out, r.listing(id))
		}
	}
	return out, nil
}

func (r memEvents) ListByCreator(_ context.Context, userID string) ([]entity.Event, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.Event{}
	for _, id := range s.eventOrder {
		if ev := s.events[id]; ev.CreatedBy == userID {
			ev.Attendees = append([]string{}, ev.Attendees...)
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r memEvents) AddAttendee(_ context.Context, eventID, userID string) error {
	s := r.s
	if err := s.fail("events.add_attendee"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return repository.ErrNotFound
	}
	if !ev.HasAttendee(userID) {
		ev.Attendees = append(ev.Attendees, userID)
		s.events[eventID] = ev
	}
	s.Writes++
	return nil
}

func (r memEvents) ListAttendees(_ context.Context, eventID, ownerID string) ([]entity.UserRef, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok || ev.CreatedBy != ownerID {
		return nil, repository.ErrNotFound
	}
	out := make([]entity.UserRef, 0, len(ev.Attendees))
	for _, id := range ev.Attendees {
		u := s.users[id]
		out = append(out, entity.UserRef{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return out, nil
}

func (r memEvents) RebuildAttendees(_ context.Context) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for id, ev := range s.events {
		rebuilt := []string{}
		for _, reg := range s.registrations {
			if reg.EventID == id {
				rebuilt = append(rebuilt, reg.UserID)
			}
		}
		if !equalIDs(ev.Attendees, rebuilt) {
			ev.Attendees = rebuilt
			s.events[id] = ev
			changed++
		}
	}
	if changed > 0 {
		s.Writes++
	}
	return changed, nil
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type memRegistrations struct{ s *MemStore }

func (r memRegistrations) Create(_ context.Context, reg *entity.Registration) error {
	s := r.s
	if err := s.fail("registrations.create"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[reg.EventID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range s.registrations {
		if existing.EventID == reg.EventID && existing.UserID == reg.UserID {
			return repository.ErrDuplicate
		}
	}
	for _, existing := range s.registrations {
		if existing.TicketCode == reg.TicketCode {
			return repository.ErrTicketCodeTaken
		}
	}
	reg.ID = uuid.NewString()
	reg.CreatedAt = s.Now()
	s.registrations = append(s.registrations, *reg)
	s.Writes++
	return nil
}

func (r memRegistrations) FindByEventAndUser(_ context.Context, eventID, userID string) (*entity.Registration, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, reg := range s.registrations {
		if reg.EventID == eventID && reg.UserID == userID {
			reg := reg
			return &reg, nil
		}
	}
	return nil, nil
}

func (r memRegistrations) ListByUser(_ context.Context, userID string) ([]entity.RegisteredEvent, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []entity.RegisteredEvent{}
	for _, reg := range s.registrations {
		if reg.UserID != userID {
			continue
		}
		ev := s.events[reg.EventID]
		out = append(out, entity.RegisteredEvent{
			RegistrationID: reg.ID,
			TicketCode:     reg.TicketCode,
			RegisteredAt:   reg.CreatedAt,
			EventID:        ev.ID,
			Name:           ev.Name,
			Description:    ev.Description,
			Date:           ev.Date,
			Location:       ev.Location,
		})
	}
	return out, nil
}

var (
	_ repository.Transactor             = (*MemStore)(nil)
	_ repository.UserRepository         = memUsers{}
	_ repository.EventRepository        = memEvents{}
	_ repository.RegistrationRepository = memRegistrations{}
)
