package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	"github.com/oksasatya/eventhub/internal/testutil"
	"github.com/oksasatya/eventhub/pkg/mailer"
	mailtpl "github.com/oksasatya/eventhub/pkg/mailer/templates"
)

type recordingPublisher struct {
	mu   sync.Mutex
	jobs []mailer.EmailJob
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, body.(mailer.EmailJob))
	return nil
}

type stubIndex struct {
	indexed []string
	hits    []string
	err     error
}

func (x *stubIndex) IndexEvent(_ context.Context, ev *entity.Event) error {
	x.indexed = append(x.indexed, ev.ID)
	return x.err
}

func (x *stubIndex) SearchEvents(context.Context, string, int) ([]string, error) {
	return x.hits, x.err
}

func newEventService(store *testutil.MemStore) *EventService {
	return NewEventService(store, store.Events(), store.Registrations(), nil)
}

func callerOf(u entity.User) Caller {
	return Caller{ID: u.ID, Username: u.Username, Email: u.Email}
}

func TestRegister_OnceThenDuplicate(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, callerOf(attendee), ev.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if res.Registration.ID == "" || len(res.Registration.TicketCode) != 8 {
		t.Fatalf("unexpected registration %+v", res.Registration)
	}
	if !res.Event.HasAttendee(attendee.ID) {
		t.Fatalf("returned event misses attendee: %v", res.Event.Attendees)
	}

	if _, err := svc.Register(ctx, callerOf(attendee), ev.ID, RequestMeta{}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if got := ErrAlreadyRegistered.Error(); got != "You are already registered for this event" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestRegister_AttendeesAndRegistrationsStayInStep(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)

	if _, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	stored, _ := store.Event(ev.ID)
	if !stored.HasAttendee(attendee.ID) || len(stored.Attendees) != 1 {
		t.Fatalf("expected attendee list [%s], got %v", attendee.ID, stored.Attendees)
	}
	if regs := store.RegistrationsFor(ev.ID, attendee.ID); len(regs) != 1 {
		t.Fatalf("expected exactly one registration, got %d", len(regs))
	}
}

func TestRegister_RollsBackWhenAttendeeAppendFails(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	store.Fail["events.add_attendee"] = errors.New("connection reset")
	svc := newEventService(store)

	_, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{})
	if err == nil || errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if regs := store.RegistrationsFor(ev.ID, attendee.ID); len(regs) != 0 {
		t.Fatalf("registration must be rolled back, found %d", len(regs))
	}

	delete(store.Fail, "events.add_attendee")
	if _, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestRegister_ConcurrentAttemptsYieldOneRegistration(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyRegistered):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
	if regs := store.RegistrationsFor(ev.ID, attendee.ID); len(regs) != 1 {
		t.Fatalf("expected one registration row, got %d", len(regs))
	}
}

func TestRegister_UnknownEvent(t *testing.T) {
	store := testutil.NewMemStore()
	attendee := store.SeedUser("attendee")
	svc := newEventService(store)

	if _, err := svc.Register(context.Background(), callerOf(attendee), "missing", RequestMeta{}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestRegister_RetriesTicketCodeCollision(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	first := store.SeedUser("first")
	second := store.SeedUser("second")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)

	codes := []string{"SAMECODE", "SAMECODE", "OTHERONE"}
	svc.NewTicketCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	if _, err := svc.Register(context.Background(), callerOf(first), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("first: %v", err)
	}
	res, err := svc.Register(context.Background(), callerOf(second), ev.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if res.Registration.TicketCode != "OTHERONE" {
		t.Fatalf("expected retried code, got %q", res.Registration.TicketCode)
	}
}

func TestRegister_QueuesConfirmationEmail(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	pub := &recordingPublisher{}
	svc := newEventService(store)
	svc.Jobs = pub
	svc.MailEnabled = true
	svc.Brand = mailtpl.Brand{CompanyName: "Event Master"}

	res, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{IP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("expected one queued email, got %d", len(pub.jobs))
	}
	job := pub.jobs[0]
	if job.To != attendee.Email || job.Template != mailtpl.RegistrationConfirmation {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Data["TicketCode"] != res.Registration.TicketCode || job.Data["EventName"] != "GopherCon" || job.Data["IP"] != "203.0.113.7" {
		t.Fatalf("unexpected job data %v", job.Data)
	}
}

func TestRegister_EmailFailureDoesNotFailRegistration(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	svc.Jobs = &recordingPublisher{err: errors.New("broker down")}
	svc.MailEnabled = true

	if _, err := svc.Register(context.Background(), callerOf(attendee), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("registration must succeed without the broker: %v", err)
	}
}

func TestListAttendees_NonOwnerLooksLikeMissingEvent(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	other := store.SeedUser("other")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, callerOf(other), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, notOwner := svc.ListAttendees(ctx, callerOf(other), ev.ID)
	_, missing := svc.ListAttendees(ctx, callerOf(owner), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(notOwner, ErrAttendeesNotFound) || !errors.Is(missing, ErrAttendeesNotFound) {
		t.Fatalf("expected ErrAttendeesNotFound for both, got %v and %v", notOwner, missing)
	}
	if notOwner.Error() != missing.Error() {
		t.Fatalf("messages differ: %q vs %q", notOwner, missing)
	}

	attendees, err := svc.ListAttendees(ctx, callerOf(owner), ev.ID)
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(attendees) != 1 || attendees[0].Username != "other" || attendees[0].Email != other.Email {
		t.Fatalf("unexpected attendees %+v", attendees)
	}
}

func TestGetEvent(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	visitor := store.SeedUser("visitor")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  Caller
		eventID string
		wantErr error
	}{
		{"owner is rejected", callerOf(owner), ev.ID, ErrOwnEvent},
		{"visitor sees event", callerOf(visitor), ev.ID, nil},
		{"missing event", callerOf(visitor), "nope", ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetEvent(ctx, tt.caller, tt.eventID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && got.ID != ev.ID {
				t.Fatalf("unexpected event %+v", got)
			}
		})
	}
	if ErrOwnEvent.Error() != "This event is created by you" {
		t.Fatalf("unexpected message %q", ErrOwnEvent)
	}
}

func TestListMyRegistrations_ReturnsEventShapedRows(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, callerOf(attendee), ev.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	regs, err := svc.ListMyRegistrations(ctx, callerOf(attendee))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(regs) != 1 {
		t.Fatalf("expected one registration, got %d", len(regs))
	}
	got := regs[0]
	if got.EventID != ev.ID || got.EventID == res.Registration.ID {
		t.Fatalf("expected event id %s, got %s", ev.ID, got.EventID)
	}
	if got.Name != ev.Name || got.Description != ev.Description || got.Location != ev.Location || !got.Date.Equal(ev.Date) {
		t.Fatalf("unexpected event fields %+v", got)
	}
}

func TestCreateEvent_RejectsMissingFieldsBeforeWriting(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	svc := newEventService(store)

	valid := CreateEventInput{Name: "GopherCon", Description: "Go talks", Date: "2025-06-01", Location: "Berlin"}
	tests := []struct {
		name string
		edit func(*CreateEventInput)
	}{
		{"name", func(in *CreateEventInput) { in.Name = "" }},
		{"description", func(in *CreateEventInput) { in.Description = "  " }},
		{"date", func(in *CreateEventInput) { in.Date = "" }},
		{"location", func(in *CreateEventInput) { in.Location = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			before := store.Writes
			if _, err := svc.CreateEvent(context.Background(), callerOf(owner), in); !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("expected ErrInvalidEvent, got %v", err)
			}
			if store.Writes != before {
				t.Fatalf("store was written on rejected input")
			}
		})
	}

	t.Run("bad date", func(t *testing.T) {
		in := valid
		in.Date = "next friday"
		before := store.Writes
		if _, err := svc.CreateEvent(context.Background(), callerOf(owner), in); !errors.Is(err, ErrInvalidEventDate) {
			t.Fatalf("expected ErrInvalidEventDate, got %v", err)
		}
		if store.Writes != before {
			t.Fatalf("store was written on rejected input")
		}
	})
}

func TestCreateEvent_PersistsAndIndexes(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	idx := &stubIndex{err: errors.New("es down")}
	svc := newEventService(store)
	svc.Index = idx

	ev, err := svc.CreateEvent(context.Background(), callerOf(owner), CreateEventInput{
		Name: "GopherCon", Description: "Go talks", Date: "2025-06-01T09:00:00Z", Location: "Berlin",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.ID == "" || ev.CreatedBy != owner.ID || ev.Date.Hour() != 9 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(idx.indexed) != 1 || idx.indexed[0] != ev.ID {
		t.Fatalf("expected event to be indexed, got %v", idx.indexed)
	}

	mine, err := svc.ListMyCreatedEvents(context.Background(), callerOf(owner))
	if err != nil || len(mine) != 1 || mine[0].ID != ev.ID {
		t.Fatalf("expected own event listed, got %v, %v", mine, err)
	}
}

func TestListEvents_ExpandsCreator(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	store.SeedEvent(owner.ID, "First")
	store.SeedEvent(owner.ID, "Second")
	svc := newEventService(store)

	events, err := svc.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].Event.Name != "First" || events[1].Event.Name != "Second" {
		t.Fatalf("unexpected order %+v", events)
	}
	if events[0].Creator.Username != "owner" || events[0].Creator.ID != owner.ID {
		t.Fatalf("creator not expanded: %+v", events[0].Creator)
	}
}

func TestTicket(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	stranger := store.SeedUser("stranger")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, callerOf(attendee), ev.ID, RequestMeta{})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ticket, err := svc.Ticket(ctx, callerOf(attendee), ev.ID)
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	if ticket.Registration.TicketCode != res.Registration.TicketCode || ticket.Event.ID != ev.ID {
		t.Fatalf("unexpected ticket %+v", ticket)
	}
	if _, err := svc.Ticket(ctx, callerOf(stranger), ev.ID); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := svc.ResendTicketEmail(ctx, callerOf(attendee), ev.ID, RequestMeta{}); !errors.Is(err, ErrMailUnavailable) {
		t.Fatalf("expected ErrMailUnavailable without a publisher, got %v", err)
	}
}

func TestSearchEvents(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	a := store.SeedEvent(owner.ID, "Alpha")
	b := store.SeedEvent(owner.ID, "Beta")
	svc := newEventService(store)
	ctx := context.Background()

	got, err := svc.SearchEvents(ctx, "alpha", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without index, got %v, %v", got, err)
	}

	svc.Index = &stubIndex{hits: []string{b.ID, "gone", a.ID}}
	got, err = svc.SearchEvents(ctx, "conf", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Event.ID != b.ID || got[1].Event.ID != a.ID {
		t.Fatalf("expected relevance order [beta alpha], got %+v", got)
	}
}

func TestReconcileAttendees(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	attendee := store.SeedUser("attendee")
	ev := store.SeedEvent(owner.ID, "GopherCon")
	svc := newEventService(store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, callerOf(attendee), ev.ID, RequestMeta{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	store.CorruptAttendees(ev.ID, []string{})

	changed, err := svc.ReconcileAttendees(ctx)
	if err != nil || changed != 1 {
		t.Fatalf("expected 1 change, got %d, %v", changed, err)
	}
	stored, _ := store.Event(ev.ID)
	if !stored.HasAttendee(attendee.ID) {
		t.Fatalf("attendee not restored: %v", stored.Attendees)
	}
}

func TestReindexEvents(t *testing.T) {
	store := testutil.NewMemStore()
	owner := store.SeedUser("owner")
	a := store.SeedEvent(owner.ID, "Alpha")
	b := store.SeedEvent(owner.ID, "Beta")
	svc := newEventService(store)
	ctx := context.Background()

	if _, err := svc.ReindexEvents(ctx); !errors.Is(err, ErrSearchUnavailable) {
		t.Fatalf("expected ErrSearchUnavailable without index, got %v", err)
	}

	idx := &stubIndex{}
	svc.Index = idx
	n, err := svc.ReindexEvents(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 indexed, got %d, %v", n, err)
	}
	if len(idx.indexed) != 2 || idx.indexed[0] != a.ID || idx.indexed[1] != b.ID {
		t.Fatalf("unexpected indexed ids %v", idx.indexed)
	}

	svc.Index = &stubIndex{err: errors.New("es down")}
	if n, err := svc.ReindexEvents(ctx); err == nil || n != 0 {
		t.Fatalf("expected failure on first event, got %d, %v", n, err)
	}
}
