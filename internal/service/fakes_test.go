package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   map[string]*domain.Ticket
	updateErr error
	creates   int
	updates   int
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	r := &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
	for _, ticket := range tickets {
		r.tickets[ticket.TicketID] = ticket.Clone()
	}
	return r
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.TicketID]; ok {
		return fmt.Errorf("duplicate ticket %s", ticket.TicketID)
	}
	ticket.Version = 1
	r.tickets[ticket.TicketID] = ticket.Clone()
	r.creates++
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, ok := r.tickets[ticket.TicketID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	ticket.Version++
	r.tickets[ticket.TicketID] = ticket.Clone()
	r.updates++
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r *fakeTicketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, *ticket.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

func (r *fakeTicketRepo) get(id string) *domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id].Clone()
}

func containsStatus(statuses []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

type fakeIDs struct {
	mu   sync.Mutex
	next int
	err  error
}

func (g *fakeIDs) Next(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.next++
	return strconv.Itoa(g.next), nil
}

type fakeRosterRepo struct {
	mu      sync.Mutex
	current map[string]*domain.OnCallRoster
	history map[string][]domain.OnCallRoster
	saveErr error
}

func newFakeRosterRepo() *fakeRosterRepo {
	return &fakeRosterRepo{current: map[string]*domain.OnCallRoster{}, history: map[string][]domain.OnCallRoster{}}
}

func (r *fakeRosterRepo) Current(ctx context.Context, teamID string) (*domain.OnCallRoster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster, ok := r.current[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return roster.Clone(), nil
}

func (r *fakeRosterRepo) History(ctx context.Context, teamID string, limit int) ([]domain.OnCallRoster, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := r.history[teamID]
	if len(history) > limit {
		history = history[:limit]
	}
	return append([]domain.OnCallRoster(nil), history...), nil
}

func (r *fakeRosterRepo) Save(ctx context.Context, roster *domain.OnCallRoster) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if prev, ok := r.current[roster.TeamID]; ok {
		r.history[roster.TeamID] = append([]domain.OnCallRoster{*prev}, r.history[roster.TeamID]...)
	}
	r.current[roster.TeamID] = roster.Clone()
	return nil
}

func (r *fakeRosterRepo) UpdateCardLinkage(ctx context.Context, teamID, conversationID, activityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster, ok := r.current[teamID]
	if !ok {
		return repository.ErrNotFound
	}
	roster.ConversationID = conversationID
	roster.CardActivityID = activityID
	return nil
}

type sentMessage struct {
	To  chat.ConversationRef
	Msg chat.Message
}

type updatedMessage struct {
	Ref chat.MessageRef
	Msg chat.Message
}

// fakeChat records outbound traffic. Conversations listed in missing fail
// with chat.ErrConversationNotFound.
type fakeChat struct {
	mu      sync.Mutex
	sent    []sentMessage
	updated []updatedMessage
	missing map[string]bool
	seq     int
}

func newFakeChat() *fakeChat {
	return &fakeChat{missing: map[string]bool{}}
}

func (c *fakeChat) Send(ctx context.Context, to chat.ConversationRef, msg chat.Message) (chat.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.missing[to.ConversationID] {
		return chat.MessageRef{}, fmt.Errorf("%w: %s", chat.ErrConversationNotFound, to.ConversationID)
	}
	c.seq++
	c.sent = append(c.sent, sentMessage{To: to, Msg: msg})
	return chat.MessageRef{ConversationID: to.ConversationID, ActivityID: "act-" + strconv.Itoa(c.seq)}, nil
}

func (c *fakeChat) Update(ctx context.Context, ref chat.MessageRef, msg chat.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.missing[ref.ConversationID] || c.missing[ref.ActivityID] {
		return fmt.Errorf("%w: %s", chat.ErrConversationNotFound, ref.ConversationID)
	}
	c.updated = append(c.updated, updatedMessage{Ref: ref, Msg: msg})
	return nil
}

func (c *fakeChat) sentTo(conversationID string) []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentMessage
	for _, m := range c.sent {
		if m.To.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

type fakeDirectory struct {
	profiles map[string]domain.MemberProfile
	calls    int
}

func (d *fakeDirectory) LookupMember(ctx context.Context, objectID string) (*domain.MemberProfile, error) {
	d.calls++
	profile, ok := d.profiles[objectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", chat.ErrMemberNotFound, objectID)
	}
	return &profile, nil
}

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

type fakeHistoryRepo struct {
	mu        sync.Mutex
	entries   []domain.TicketHistory
	createErr error
}

func (r *fakeHistoryRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	history.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, *history)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}
