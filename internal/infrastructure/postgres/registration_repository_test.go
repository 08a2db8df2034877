package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oksasatya/eventhub/internal/domain/entity"
	"github.com/oksasatya/eventhub/internal/domain/repository"
	"github.com/oksasatya/eventhub/internal/testutil"
)

func TestRegistrationRepository_UniquePair(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	owner := testutil.InsertUser(t, ctx, pool, "owner")
	attendee := testutil.InsertUser(t, ctx, pool, "attendee")
	eventID := testutil.InsertEvent(t, ctx, pool, owner, "GopherCon")

	repo := NewRegistrationRepository(pool)
	first := &entity.Registration{EventID: eventID, UserID: attendee, TicketCode: "AAAA1111"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("expected registration id to be set")
	}

	second := &entity.Registration{EventID: eventID, UserID: attendee, TicketCode: "BBBB2222"}
	if err := repo.Create(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := repo.FindByEventAndUser(ctx, eventID, attendee)
	if err != nil {
		t.Fatalf("find registration: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("expected registration %s, got %+v", first.ID, found)
	}

	none, err := repo.FindByEventAndUser(ctx, eventID, owner)
	if err != nil || none != nil {
		t.Fatalf("expected no registration for owner, got %+v, %v", none, err)
	}
}

func TestEventRepository_AddAttendeeIsIdempotent(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	owner := testutil.InsertUser(t, ctx, pool, "owner")
	attendee := testutil.InsertUser(t, ctx, pool, "attendee")
	eventID := testutil.InsertEvent(t, ctx, pool, owner, "GopherCon")

	repo := NewEventRepository(pool)
	for i := 0; i < 2; i++ {
		if err := repo.AddAttendee(ctx, eventID, attendee); err != nil {
			t.Fatalf("add attendee: %v", err)
		}
	}

	ev, err := repo.GetByID(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0] != attendee {
		t.Fatalf("expected single attendee %s, got %v", attendee, ev.Attendees)
	}

	if err := repo.AddAttendee(ctx, "not-a-uuid", attendee); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestEventRepository_ListAttendeesOwnerOnly(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	owner := testutil.InsertUser(t, ctx, pool, "owner")
	other := testutil.InsertUser(t, ctx, pool, "other")
	eventID := testutil.InsertEvent(t, ctx, pool, owner, "GopherCon")

	repo := NewEventRepository(pool)
	if err := repo.AddAttendee(ctx, eventID, other); err != nil {
		t.Fatalf("add attendee: %v", err)
	}

	got, err := repo.ListAttendees(ctx, eventID, owner)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(got) != 1 || got[0].Username != "other" || got[0].Email != "other@example.com" {
		t.Fatalf("unexpected attendees: %+v", got)
	}

	if _, err := repo.ListAttendees(ctx, eventID, other); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-owner, got %v", err)
	}
}

func TestRegistrationInTx_ConcurrentAttemptsYieldOneRow(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	owner := testutil.InsertUser(t, ctx, pool, "owner")
	attendee := testutil.InsertUser(t, ctx, pool, "attendee")
	eventID := testutil.InsertEvent(t, ctx, pool, owner, "GopherCon")

	tx := NewTxManager(pool)
	regs := NewRegistrationRepository(pool)
	events := NewEventRepository(pool)

	codes := []string{"CODE0001", "CODE0002", "CODE0003"}
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			err := tx.WithTx(ctx, func(txCtx context.Context) error {
				if err := regs.Create(txCtx, &entity.Registration{EventID: eventID, UserID: attendee, TicketCode: code}); err != nil {
					return err
				}
				return events.AddAttendee(txCtx, eventID, attendee)
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, repository.ErrDuplicate):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(code)
	}
	wg.Wait()

	if successes != 1 || duplicates != len(codes)-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d and %d", len(codes)-1, successes, duplicates)
	}

	var count int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, attendee).Scan(&count); err != nil {
		t.Fatalf("count registrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one registration row, got %d", count)
	}
}

func TestEventRepository_RebuildAttendees(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.TruncateAll(t, ctx, pool)

	owner := testutil.InsertUser(t, ctx, pool, "owner")
	attendee := testutil.InsertUser(t, ctx, pool, "attendee")
	eventID := testutil.InsertEvent(t, ctx, pool, owner, "GopherCon")

	// A registration written without its attendee entry.
	if err := NewRegistrationRepository(pool).Create(ctx, &entity.Registration{EventID: eventID, UserID: attendee, TicketCode: "DRIFT001"}); err != nil {
		t.Fatalf("create registration: %v", err)
	}

	repo := NewEventRepository(pool)
	changed, err := repo.RebuildAttendees(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 event changed, got %d", changed)
	}
	ev, err := repo.GetByID(ctx, eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !ev.HasAttendee(attendee) {
		t.Fatalf("expected attendee restored, got %v", ev.Attendees)
	}

	changed, err = repo.RebuildAttendees(ctx)
	if err != nil || changed != 0 {
		t.Fatalf("expected second rebuild to be a no-op, got %d, %v", changed, err)
	}
}
