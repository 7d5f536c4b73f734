package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: load, apply, persist, publish.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	ids        repository.IDGenerator
	templates  cards.TemplateProvider
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	locks      *keyedMutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	// HistoryRepo is optional; without it no audit trail is kept.
	HistoryRepo repository.TicketHistoryRepository
	IDGenerator repository.IDGenerator
	Templates   cards.TemplateProvider
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// TransitionResult is the stored ticket after a transition and what to tell each audience.
type TransitionResult struct {
	Ticket  *domain.Ticket
	Notices Notices
}

// TicketListFilter describes admin listing filters.
type TicketListFilter struct {
	Statuses           []domain.TicketStatus
	RequestTypes       []domain.RequestType
	RequesterObjectID  *string
	AssignedToObjectID *string
	SearchTerm         *string
	Limit              int
	Offset             int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		ids:        deps.IDGenerator,
		templates:  deps.Templates,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        clock,
		locks:      newKeyedMutex(),
	}
}

// FieldTemplate returns the intake fields for cardID. A provider failure is
// logged and treated as "no extra fields".
func (s *TicketService) FieldTemplate(cardID string) []cards.FieldSpec {
	if s.templates == nil {
		return nil
	}
	fields, err := s.templates.FieldTemplate(cardID)
	if err != nil {
		s.logger.Warn("card template unavailable", zap.String("card_id", cardID), zap.Error(err))
		return nil
	}
	return fields
}

// CreateTicket validates an intake, allocates an id and stores a new Unassigned ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input IntakeInput) (*domain.Ticket, error) {
	if err := ValidateIntake(input, s.FieldTemplate(input.CardID)); err != nil {
		s.metrics.RecordIntake(apperrors.CodeValidationFailed)
		return nil, err
	}

	id, err := s.ids.Next(ctx)
	if err != nil {
		s.metrics.RecordIntake(apperrors.CodePersistence)
		return nil, storeError("", err)
	}

	ticket := NewTicketRecord(input, id, s.now())
	if err := ctx.Err(); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.metrics.RecordIntake(apperrors.CodePersistence)
		return nil, storeError(id, err)
	}
	s.metrics.RecordIntake("ok")

	event := events.NewEvent(events.EventTicketCreated, input.Requester, ticket.LastModifiedOn,
		events.TicketCreatedPayload{Ticket: ticket.Clone()})
	event.TicketID = ticket.TicketID
	s.publishEvent(ctx, event)
	return ticket, nil
}

// Transition applies tr to the ticket on behalf of actor. Transitions on the
// same ticket are serialized; the event is published after the lock is released.
func (s *TicketService) Transition(ctx context.Context, ticketID string, tr domain.Transition, actor domain.Identity) (*TransitionResult, error) {
	result, previous, err := s.transitionLocked(ctx, ticketID, tr, actor)
	if err != nil {
		s.metrics.RecordTransition(tr.Kind.String(), apperrors.ToDomainError(err).Code)
		return nil, err
	}
	s.metrics.RecordTransition(tr.Kind.String(), "ok")

	event := events.NewEvent(events.EventTicketTransitioned, actor, result.Ticket.LastModifiedOn,
		events.TicketTransitionedPayload{
			Kind:            tr.Kind,
			PreviousStatus:  previous,
			Ticket:          result.Ticket.Clone(),
			SMENotice:       result.Notices.SME,
			RequesterNotice: result.Notices.Requester,
			RequesterCard:   result.Notices.RequesterCard,
		})
	event.TicketID = ticketID
	s.publishEvent(ctx, event)
	return result, nil
}

func (s *TicketService) transitionLocked(ctx context.Context, ticketID string, tr domain.Transition, actor domain.Identity) (*TransitionResult, domain.TicketStatus, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, "", storeError(ticketID, err)
	}

	next, notices, err := ApplyTransition(current, tr, actor, s.now())
	if err != nil {
		return nil, "", err
	}

	if err := ctx.Err(); err != nil {
		return nil, "", apperrors.ToDomainError(err)
	}
	if err := s.tickets.Update(ctx, next); err != nil {
		return nil, "", storeError(ticketID, err)
	}
	s.recordHistory(ctx, current.Status, next, tr.Kind, actor)
	return &TransitionResult{Ticket: next, Notices: notices}, current.Status, nil
}

// recordHistory appends the audit entry. The ticket is already stored, so a
// failure here is logged and does not fail the transition.
func (s *TicketService) recordHistory(ctx context.Context, from domain.TicketStatus, ticket *domain.Ticket, kind domain.TransitionKind, actor domain.Identity) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticket.TicketID,
		Transition:    kind,
		FromStatus:    from,
		ToStatus:      ticket.Status,
		RequestType:   ticket.RequestType,
		ActorName:     actor.Name,
		ActorObjectID: actor.ObjectID,
		CreatedOn:     ticket.LastModifiedOn,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("writing ticket history failed",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("transition", kind.String()),
			zap.Error(err))
	}
}

// History returns the ticket's applied transitions, oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(ticketID, err)
	}
	return entries, nil
}

// Get returns a ticket by id.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(ticketID, err)
	}
	return ticket, nil
}

// List returns tickets matching filter, most recently modified first.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Statuses:           filter.Statuses,
		RequestTypes:       filter.RequestTypes,
		RequesterObjectID:  filter.RequesterObjectID,
		AssignedToObjectID: filter.AssignedToObjectID,
		SearchTerm:         filter.SearchTerm,
		Limit:              filter.Limit,
		Offset:             filter.Offset,
	})
	if err != nil {
		return nil, storeError("", err)
	}
	return tickets, nil
}

// RecordSMEMessage stores where the ticket's SME card was posted. It does not
// touch the audit fields and publishes nothing.
func (s *TicketService) RecordSMEMessage(ctx context.Context, ticketID string, ref chat.MessageRef) error {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return storeError(ticketID, err)
	}
	ticket.SMEConversationID = ref.ConversationID
	ticket.SMETicketActivityID = ref.ActivityID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return storeError(ticketID, err)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// storeError maps repository failures to domain errors.
func storeError(ticketID string, err error) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewTicketNotFound(ticketID)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConcurrentModification(ticketID, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.ToDomainError(err)
	default:
		return apperrors.NewPersistenceError(err)
	}
}
