package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(ctx context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type ticketFixture struct {
	svc      *TicketService
	repo     *fakeTicketRepo
	history  *fakeHistoryRepo
	ids      *fakeIDs
	recorder *eventRecorder
}

func newTicketFixture(t *testing.T, templates cards.TemplateProvider, tickets ...*domain.Ticket) *ticketFixture {
	t.Helper()
	repo := newFakeTicketRepo(tickets...)
	history := &fakeHistoryRepo{}
	ids := &fakeIDs{}
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	dispatcher.Subscribe(events.EventTicketCreated, recorder.handle)
	dispatcher.Subscribe(events.EventTicketTransitioned, recorder.handle)

	svc := NewTicketService(TicketDependencies{
		TicketRepo:  repo,
		HistoryRepo: history,
		IDGenerator: ids,
		Templates:   templates,
		Dispatcher:  dispatcher,
		Clock:       stepClock(t0, time.Minute),
	})
	return &ticketFixture{svc: svc, repo: repo, history: history, ids: ids, recorder: recorder}
}

func TestCreateTicket_EmptyTitleThenValid(t *testing.T) {
	f := newTicketFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreateTicket(ctx, IntakeInput{Description: "No network", Requester: requester})
	if !apperrors.HasCode(err, apperrors.CodeValidationFailed) {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
	if got := apperrors.InvalidFields(err); !reflect.DeepEqual(got, []string{"title"}) {
		t.Errorf("fields = %v", got)
	}
	if f.ids.next != 0 || f.recorder.count() != 0 {
		t.Error("rejected intake must not allocate an id or publish")
	}

	first, err := f.svc.CreateTicket(ctx, IntakeInput{Title: "Wifi", Description: "No network", Requester: requester})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	second, err := f.svc.CreateTicket(ctx, IntakeInput{Title: "Mail", Description: "Bounces", Requester: requester})
	if err != nil {
		t.Fatalf("CreateTicket() error = %v", err)
	}
	if first.Status != domain.TicketStatusUnassigned || first.TicketID != "1" || second.TicketID != "2" {
		t.Errorf("unexpected tickets %s/%s %s", first.TicketID, first.Status, second.TicketID)
	}
	if first.Version != 1 {
		t.Errorf("version = %d, want 1", first.Version)
	}
	if f.recorder.count() != 2 || f.recorder.events[0].Type != events.EventTicketCreated {
		t.Errorf("expected two created events, got %d", f.recorder.count())
	}
}

func TestCreateTicket_TemplateFields(t *testing.T) {
	templates := cards.NewStaticTemplateProvider(map[string][]cards.FieldSpec{
		cards.DefaultCardID: {{ID: "product", Label: "Product", Kind: cards.InputText, Required: true}},
	})
	f := newTicketFixture(t, templates)

	_, err := f.svc.CreateTicket(context.Background(), IntakeInput{Title: "t", Description: "d", Requester: requester})
	if got := apperrors.InvalidFields(err); !reflect.DeepEqual(got, []string{"product"}) {
		t.Fatalf("fields = %v (err %v)", got, err)
	}

	ticket, err := f.svc.CreateTicket(context.Background(), IntakeInput{
		Title: "t", Description: "d", Requester: requester,
		AdditionalProperties: map[string]string{"product": "Dock"},
	})
	if err != nil || ticket.AdditionalProperties["product"] != "Dock" {
		t.Fatalf("CreateTicket() = %+v, %v", ticket, err)
	}
}

func TestCreateTicket_IDAllocationFails(t *testing.T) {
	f := newTicketFixture(t, nil)
	f.ids.err = errors.New("sequence gone")

	_, err := f.svc.CreateTicket(context.Background(), IntakeInput{Title: "t", Description: "d", Requester: requester})
	if !apperrors.HasCode(err, apperrors.CodePersistence) {
		t.Fatalf("expected PERSISTENCE_ERROR, got %v", err)
	}
}

func TestTransition_PersistsAndPublishes(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))

	result, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionAssignToSelf}, sme)
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if result.Notices.SME != "Assigned to Sam" {
		t.Errorf("notices = %+v", result.Notices)
	}
	stored := f.repo.get("42")
	if stored.Status != domain.TicketStatusAssigned || stored.Version != 4 {
		t.Errorf("stored = %s v%d", stored.Status, stored.Version)
	}
	if f.recorder.count() != 1 {
		t.Fatalf("expected one event, got %d", f.recorder.count())
	}
	payload := f.recorder.events[0].Payload.(events.TicketTransitionedPayload)
	if payload.PreviousStatus != domain.TicketStatusUnassigned || payload.Kind != domain.TransitionAssignToSelf {
		t.Errorf("payload = %+v", payload)
	}
}

func TestTransition_TicketNotFound(t *testing.T) {
	f := newTicketFixture(t, nil)
	_, err := f.svc.Transition(context.Background(), "404", domain.Transition{Kind: domain.TransitionClose}, sme)
	if !apperrors.HasCode(err, apperrors.CodeTicketNotFound) {
		t.Fatalf("expected TICKET_NOT_FOUND, got %v", err)
	}
}

func TestTransition_PersistenceFailurePublishesNothing(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	f.repo.updateErr = errors.New("disk full")

	_, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionClose}, sme)
	if !apperrors.HasCode(err, apperrors.CodePersistence) {
		t.Fatalf("expected PERSISTENCE_ERROR, got %v", err)
	}
	if !strings.Contains(apperrors.UserMessage(err), "storage error") {
		t.Errorf("user message = %q", apperrors.UserMessage(err))
	}
	if f.recorder.count() != 0 {
		t.Error("no event may be published after a failed write")
	}
	if f.repo.get("42").Status != domain.TicketStatusUnassigned {
		t.Error("stored ticket changed")
	}
}

func TestTransition_VersionConflict(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	f.repo.updateErr = repository.ErrVersionConflict

	_, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionClose}, sme)
	if !apperrors.HasCode(err, apperrors.CodeConcurrentModification) {
		t.Fatalf("expected CONCURRENT_MODIFICATION, got %v", err)
	}
}

func TestTransition_PreconditionFailureLeavesStore(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusClosed))

	_, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionWithdraw}, requester)
	if !apperrors.HasCode(err, apperrors.CodeTicketAlreadyClosed) {
		t.Fatalf("expected TICKET_ALREADY_CLOSED, got %v", err)
	}
	if f.repo.updates != 0 || f.recorder.count() != 0 {
		t.Error("failed precondition must not write or publish")
	}
}

func TestTransition_CancelledContext(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Transition(ctx, "42", domain.Transition{Kind: domain.TransitionClose}, sme)
	if !apperrors.HasCode(err, apperrors.CodeCancelled) {
		t.Fatalf("expected CANCELLED, got %v", err)
	}
	if f.repo.updates != 0 {
		t.Error("cancelled request must not write")
	}
}

func TestTransition_ConcurrentSameTicketSerialized(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			label := "Normal"
			if i%2 == 0 {
				label = "Urgent"
			}
			_, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionSetRequestType, RequestType: label}, sme)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent transition failed: %v", err)
		}
	}
	if got := f.repo.get("42").Version; got != 3+n {
		t.Errorf("version = %d, want %d", got, 3+n)
	}
	if f.svc.locks.size() != 0 {
		t.Errorf("lock table should be empty, has %d entries", f.svc.locks.size())
	}
}

func TestRecordSMEMessage(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	before := f.repo.get("42")

	if err := f.svc.RecordSMEMessage(context.Background(), "42", chat.MessageRef{ConversationID: "C-sme", ActivityID: "1.5"}); err != nil {
		t.Fatalf("RecordSMEMessage() error = %v", err)
	}
	after := f.repo.get("42")
	if after.SMEConversationID != "C-sme" || after.SMETicketActivityID != "1.5" {
		t.Errorf("linkage not stored: %+v", after)
	}
	if !after.LastModifiedOn.Equal(before.LastModifiedOn) {
		t.Error("recording a card must not touch the audit fields")
	}

	if err := f.svc.RecordSMEMessage(context.Background(), "404", chat.MessageRef{}); !apperrors.HasCode(err, apperrors.CodeTicketNotFound) {
		t.Errorf("expected TICKET_NOT_FOUND, got %v", err)
	}
}

func TestListAndGet(t *testing.T) {
	open := baseTicket(domain.TicketStatusUnassigned)
	closed := baseTicket(domain.TicketStatusClosed)
	closed.TicketID = "43"
	f := newTicketFixture(t, nil, open, closed)

	got, err := f.svc.List(context.Background(), TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusClosed}})
	if err != nil || len(got) != 1 || got[0].TicketID != "43" {
		t.Fatalf("List() = %v, %v", got, err)
	}
	if _, err := f.svc.Get(context.Background(), "missing"); !apperrors.HasCode(err, apperrors.CodeTicketNotFound) {
		t.Errorf("expected TICKET_NOT_FOUND, got %v", err)
	}
}

func TestTransition_WritesHistory(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	ctx := context.Background()

	if _, err := f.svc.Transition(ctx, "42", domain.Transition{Kind: domain.TransitionAssignToSelf}, sme); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if _, err := f.svc.Transition(ctx, "42", domain.Transition{Kind: domain.TransitionWithdraw}, sme); err == nil {
		t.Fatal("expected FORBIDDEN")
	}
	if _, err := f.svc.Transition(ctx, "42", domain.Transition{Kind: domain.TransitionClose}, sme); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	history, err := f.svc.History(ctx, "42")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, rejected transitions are not recorded; got %d", len(history))
	}
	first, second := history[0], history[1]
	if first.Transition != domain.TransitionAssignToSelf || first.FromStatus != domain.TicketStatusUnassigned || first.ToStatus != domain.TicketStatusAssigned {
		t.Errorf("unexpected first entry %+v", first)
	}
	if second.ToStatus != domain.TicketStatusClosed || second.ActorObjectID != sme.ObjectID {
		t.Errorf("unexpected second entry %+v", second)
	}
}

func TestTransition_HistoryFailureDoesNotFailTransition(t *testing.T) {
	f := newTicketFixture(t, nil, baseTicket(domain.TicketStatusUnassigned))
	f.history.createErr = errors.New("disk full")

	if _, err := f.svc.Transition(context.Background(), "42", domain.Transition{Kind: domain.TransitionClose}, sme); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if f.repo.get("42").Status != domain.TicketStatusClosed || f.recorder.count() != 1 {
		t.Error("ticket should be stored and the event published")
	}
}
