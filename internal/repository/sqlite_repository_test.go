package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/persistence"
)

func newTestDB(t *testing.T) *persistence.SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := persistence.NewSQLite(context.Background(), config.SQLiteConfig{Path: path}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func sampleTicket(id string, now time.Time) *domain.Ticket {
	return &domain.Ticket{
		TicketID:                id,
		CardID:                  "default",
		Status:                  domain.TicketStatusUnassigned,
		Title:                   "VPN drops",
		Description:             "Disconnects every hour",
		RequestType:             domain.RequestTypeNormal,
		AdditionalProperties:    map[string]string{"product": "Laptop"},
		RequesterName:           "Ann",
		RequesterObjectID:       "u-ann",
		RequesterConversationID: "D-ann",
		LastModifiedByName:      "Ann",
		LastModifiedByObjectID:  "u-ann",
		LastModifiedOn:          now,
		CreatedOn:               now,
	}
}

func TestSQLiteTickets_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteTicketRepository(db.DB)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC)

	ticket := sampleTicket("1", now)
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Version != 1 {
		t.Errorf("expected version 1 after create, got %d", ticket.Version)
	}

	got, err := repo.GetByID(ctx, "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "VPN drops" || got.Status != domain.TicketStatusUnassigned {
		t.Errorf("unexpected ticket %+v", got)
	}
	if got.AdditionalProperties["product"] != "Laptop" {
		t.Errorf("additional properties lost: %v", got.AdditionalProperties)
	}
	if !got.CreatedOn.Equal(now) || !got.LastModifiedOn.Equal(now) {
		t.Errorf("timestamps not preserved: %v %v", got.CreatedOn, got.LastModifiedOn)
	}
	if got.AssignedToObjectID != nil || got.ClosedOn != nil {
		t.Error("nullable columns should stay nil")
	}
}

func TestSQLiteTickets_GetNotFound(t *testing.T) {
	repo := NewSQLiteTicketRepository(newTestDB(t).DB)
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteTickets_UpdateVersioning(t *testing.T) {
	repo := NewSQLiteTicketRepository(newTestDB(t).DB)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ticket := sampleTicket("7", now)
	if err := repo.Create(ctx, ticket); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale := ticket.Clone()

	closedBy := "Sam"
	closedOn := now.Add(time.Hour)
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedByName = &closedBy
	ticket.ClosedOn = &closedOn
	if err := repo.Update(ctx, ticket); err != nil {
		t.Fatalf("update: %v", err)
	}
	if ticket.Version != 2 {
		t.Errorf("expected version 2, got %d", ticket.Version)
	}

	stale.Title = "overwrite"
	if err := repo.Update(ctx, stale); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := repo.GetByID(ctx, "7")
	if got.Status != domain.TicketStatusClosed || got.Title != "VPN drops" {
		t.Errorf("stale write leaked: %+v", got)
	}
	if got.ClosedOn == nil || !got.ClosedOn.Equal(closedOn) {
		t.Errorf("closed_on = %v, want %v", got.ClosedOn, closedOn)
	}

	missing := sampleTicket("404", now)
	missing.Version = 1
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteTickets_List(t *testing.T) {
	repo := NewSQLiteTicketRepository(newTestDB(t).DB)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"1", "2", "3"} {
		ticket := sampleTicket(id, base.Add(time.Duration(i)*time.Minute))
		if id == "2" {
			ticket.Status = domain.TicketStatusClosed
			ticket.Title = "Printer jam"
		}
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	all, err := repo.List(ctx, TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].TicketID != "3" {
		t.Fatalf("expected 3 tickets most recent first, got %d", len(all))
	}

	open, _ := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusUnassigned}})
	if len(open) != 2 {
		t.Errorf("expected 2 unassigned, got %d", len(open))
	}

	term := "PRINTER"
	found, _ := repo.List(ctx, TicketFilter{SearchTerm: &term})
	if len(found) != 1 || found[0].TicketID != "2" {
		t.Errorf("search returned %v", found)
	}

	page, _ := repo.List(ctx, TicketFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].TicketID != "2" {
		t.Errorf("paging returned %v", page)
	}
}

func TestSQLiteTickets_ListOrdersFractionalSeconds(t *testing.T) {
	repo := NewSQLiteTicketRepository(newTestDB(t).DB)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	// .12 and .123 differ only in trailing zeros once formatted.
	older := sampleTicket("1", base.Add(120*time.Millisecond))
	newer := sampleTicket("2", base.Add(123*time.Millisecond))
	for _, ticket := range []*domain.Ticket{older, newer} {
		if err := repo.Create(ctx, ticket); err != nil {
			t.Fatalf("create %s: %v", ticket.TicketID, err)
		}
	}

	got, err := repo.List(ctx, TicketFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].TicketID != "2" || got[1].TicketID != "1" {
		t.Fatalf("expected ticket 2 before ticket 1, got %v", ticketIDs(got))
	}
	if !got[0].LastModifiedOn.Equal(newer.LastModifiedOn) {
		t.Errorf("timestamp changed on round trip: %v", got[0].LastModifiedOn)
	}
}

func ticketIDs(tickets []domain.Ticket) []string {
	ids := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		ids = append(ids, ticket.TicketID)
	}
	return ids
}

func TestCounterIDGenerator_Monotonic(t *testing.T) {
	gen := NewCounterIDGenerator(newTestDB(t).DB)
	ctx := context.Background()

	var (
		mu  sync.Mutex
		ids = map[string]bool{}
		wg  sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.Next(ctx)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(ids) != 20 {
		t.Fatalf("expected 20 distinct ids, got %d", len(ids))
	}

	next, _ := gen.Next(ctx)
	if next != "21" {
		t.Errorf("expected next id 21, got %s", next)
	}
}

func TestSQLiteRoster_SaveArchivesPrevious(t *testing.T) {
	repo := NewSQLiteRosterRepository(newTestDB(t).DB)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.Current(ctx, "team-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty team, got %v", err)
	}

	for i, name := range []string{"Ann", "Bob", "Cy"} {
		roster := &domain.OnCallRoster{
			OnCallSupportID:    "roster-1",
			TeamID:             "team-1",
			Experts:            []domain.Expert{{ObjectID: "u-" + name, Name: name}},
			ModifiedByName:     "Lead",
			ModifiedByObjectID: "u-lead",
			ModifiedOn:         base.Add(time.Duration(i) * time.Hour),
		}
		if err := repo.Save(ctx, roster); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	current, err := repo.Current(ctx, "team-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if len(current.Experts) != 1 || current.Experts[0].Name != "Cy" {
		t.Errorf("unexpected current roster %+v", current)
	}

	history, err := repo.History(ctx, "team-1", 9)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Experts[0].Name != "Bob" || history[1].Experts[0].Name != "Ann" {
		t.Errorf("history should be most recent first, got %+v", history)
	}

	limited, _ := repo.History(ctx, "team-1", 1)
	if len(limited) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(limited))
	}
}

func TestSQLiteRoster_EmptyExpertsAndLinkage(t *testing.T) {
	repo := NewSQLiteRosterRepository(newTestDB(t).DB)
	ctx := context.Background()

	if err := repo.UpdateCardLinkage(ctx, "team-x", "C1", "1.1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	roster := &domain.OnCallRoster{OnCallSupportID: "r", TeamID: "team-x", ModifiedOn: time.Now()}
	if err := repo.Save(ctx, roster); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.UpdateCardLinkage(ctx, "team-x", "C1", "1.1"); err != nil {
		t.Fatalf("linkage: %v", err)
	}

	got, _ := repo.Current(ctx, "team-x")
	if got.Experts == nil || len(got.Experts) != 0 {
		t.Errorf("expected empty non-nil experts, got %#v", got.Experts)
	}
	if got.ConversationID != "C1" || got.CardActivityID != "1.1" {
		t.Errorf("linkage not stored: %+v", got)
	}
}

func TestSQLiteTicketHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteTicketHistoryRepository(db.DB)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	entries := []domain.TicketHistory{
		{TicketID: "1", Transition: domain.TransitionAssignToSelf, FromStatus: domain.TicketStatusUnassigned, ToStatus: domain.TicketStatusAssigned, RequestType: domain.RequestTypeNormal, ActorName: "Sam", ActorObjectID: "u-sam", CreatedOn: now},
		{TicketID: "2", Transition: domain.TransitionClose, FromStatus: domain.TicketStatusUnassigned, ToStatus: domain.TicketStatusClosed, RequestType: domain.RequestTypeNormal, ActorName: "Sam", ActorObjectID: "u-sam", CreatedOn: now},
		{TicketID: "1", Transition: domain.TransitionClose, FromStatus: domain.TicketStatusAssigned, ToStatus: domain.TicketStatusClosed, RequestType: domain.RequestTypeUrgent, ActorName: "Sam", ActorObjectID: "u-sam", CreatedOn: now.Add(time.Minute)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("create: %v", err)
		}
		if entries[i].ID == 0 {
			t.Fatal("expected generated id")
		}
	}

	got, err := repo.ListByTicket(ctx, "1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Transition != domain.TransitionAssignToSelf || got[1].Transition != domain.TransitionClose {
		t.Errorf("entries out of order: %+v", got)
	}
	if !got[1].CreatedOn.Equal(now.Add(time.Minute)) || got[1].RequestType != domain.RequestTypeUrgent {
		t.Errorf("unexpected second entry %+v", got[1])
	}

	none, err := repo.ListByTicket(ctx, "404")
	if err != nil || len(none) != 0 {
		t.Errorf("expected no entries, got %v %v", none, err)
	}
}
