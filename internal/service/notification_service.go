package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
)

// NotificationService turns domain events into chat messages.
type NotificationService struct {
	dispatcher   events.Dispatcher
	chat         chat.Dispatcher
	tickets      *TicketService
	rosters      *RosterService
	logger       *zap.Logger
	metrics      *observability.Metrics
	cfg          config.NotificationConfig
	smeChannelID string
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Events       events.Dispatcher
	Chat         chat.Dispatcher
	Tickets      *TicketService
	Rosters      *RosterService
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Config       config.NotificationConfig
	SMEChannelID string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:   deps.Events,
		chat:         deps.Chat,
		tickets:      deps.Tickets,
		rosters:      deps.Rosters,
		logger:       logger,
		metrics:      deps.Metrics,
		cfg:          deps.Config,
		smeChannelID: deps.SMEChannelID,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketTransitioned, n.handleTicketTransitioned)
	n.dispatcher.Subscribe(events.EventRosterUpdated, n.handleRosterUpdated)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok || payload.Ticket == nil {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	if _, err := n.postSMECard(ctx, payload.Ticket); err != nil {
		n.metrics.RecordNotificationFailure("sme")
		n.logger.Error("posting ticket card failed", zap.String("ticket_id", payload.Ticket.TicketID), zap.Error(err))
		return err
	}
	return nil
}

func (n *NotificationService) handleTicketTransitioned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketTransitionedPayload)
	if !ok || payload.Ticket == nil {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	ticket := payload.Ticket

	var errs []error
	if err := n.notifySME(ctx, ticket, payload.SMENotice); err != nil {
		n.metrics.RecordNotificationFailure("sme")
		n.logger.Error("sme notification failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		errs = append(errs, err)
	}
	if err := n.notifyRequester(ctx, ticket, payload); err != nil {
		n.metrics.RecordNotificationFailure("requester")
		n.logger.Error("requester notification failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// notifySME refreshes the ticket card in the SME channel and threads the
// notice under it. A card that no longer exists is posted again.
func (n *NotificationService) notifySME(ctx context.Context, ticket *domain.Ticket, notice string) error {
	ref := chat.MessageRef{ConversationID: ticket.SMEConversationID, ActivityID: ticket.SMETicketActivityID}
	card := cards.TicketCard(ticket, n.tickets.FieldTemplate(ticket.CardID))

	switch {
	case ref.ActivityID == "":
		posted, err := n.postSMECard(ctx, ticket)
		if err != nil {
			return err
		}
		ref = posted
	default:
		err := n.chat.Update(ctx, ref, chat.Message{Card: card})
		if errors.Is(err, chat.ErrConversationNotFound) && n.cfg.RepostOnMissingCard {
			n.logger.Warn("ticket card missing, reposting",
				zap.String("ticket_id", ticket.TicketID),
				zap.String("conversation_id", ref.ConversationID))
			posted, err := n.postSMECard(ctx, ticket)
			if err != nil {
				return err
			}
			ref = posted
		} else if err != nil {
			return err
		}
	}

	if notice == "" {
		return nil
	}
	_, err := n.chat.Send(ctx, chat.ConversationRef{ConversationID: ref.ConversationID, ThreadID: ref.ActivityID}, chat.Message{Text: notice})
	return err
}

func (n *NotificationService) notifyRequester(ctx context.Context, ticket *domain.Ticket, payload events.TicketTransitionedPayload) error {
	if ticket.RequesterConversationID == "" {
		return nil
	}
	msg := chat.Message{Text: payload.RequesterNotice}
	if payload.RequesterCard {
		msg = chat.Message{Card: cards.RequesterCard(ticket)}
	}
	if msg.Text == "" && msg.Card == nil {
		return nil
	}

	_, err := n.chat.Send(ctx, chat.ConversationRef{ConversationID: ticket.RequesterConversationID}, msg)
	if errors.Is(err, chat.ErrConversationNotFound) {
		n.logger.Warn("requester conversation gone, notice dropped",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("conversation_id", ticket.RequesterConversationID))
		return nil
	}
	return err
}

// postSMECard posts a fresh ticket card to the SME channel and stores the linkage.
func (n *NotificationService) postSMECard(ctx context.Context, ticket *domain.Ticket) (chat.MessageRef, error) {
	card := cards.TicketCard(ticket, n.tickets.FieldTemplate(ticket.CardID))
	ref, err := n.chat.Send(ctx, chat.ConversationRef{ConversationID: n.smeChannelID}, chat.Message{Card: card})
	if err != nil {
		return chat.MessageRef{}, err
	}
	if err := n.tickets.RecordSMEMessage(ctx, ticket.TicketID, ref); err != nil {
		return ref, fmt.Errorf("store card linkage: %w", err)
	}
	return ref, nil
}

// PostMissingCards posts an SME card for each open ticket that has none, such
// as a ticket whose card post failed when it was created. It returns how many
// cards were posted.
func (n *NotificationService) PostMissingCards(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	open, err := n.tickets.List(ctx, TicketListFilter{
		Statuses: []domain.TicketStatus{domain.TicketStatusUnassigned, domain.TicketStatusAssigned},
		Limit:    limit,
	})
	if err != nil {
		return 0, err
	}

	posted := 0
	var errs []error
	for i := range open {
		ticket := &open[i]
		if ticket.SMETicketActivityID != "" {
			continue
		}
		if _, err := n.postSMECard(ctx, ticket); err != nil {
			n.metrics.RecordNotificationFailure("sme")
			n.logger.Error("posting missing ticket card failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		posted++
	}
	return posted, errors.Join(errs...)
}

func (n *NotificationService) handleRosterUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RosterUpdatedPayload)
	if !ok || payload.Roster == nil {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	roster := payload.Roster
	msg := chat.Message{
		Text:     payload.MentionText,
		Mentions: payload.Mentions,
		Card:     cards.RosterCard(payload.Snapshot),
	}

	if roster.CardActivityID != "" {
		ref := chat.MessageRef{ConversationID: roster.ConversationID, ActivityID: roster.CardActivityID}
		err := n.chat.Update(ctx, ref, msg)
		if err == nil {
			return nil
		}
		if !errors.Is(err, chat.ErrConversationNotFound) {
			n.metrics.RecordNotificationFailure("roster")
			n.logger.Error("roster card update failed", zap.String("team_id", roster.TeamID), zap.Error(err))
			return err
		}
		n.logger.Warn("roster card missing, reposting", zap.String("team_id", roster.TeamID))
	}

	channel := n.smeChannelID
	if channel == "" {
		channel = roster.ConversationID
	}
	ref, err := n.chat.Send(ctx, chat.ConversationRef{ConversationID: channel}, msg)
	if err != nil {
		n.metrics.RecordNotificationFailure("roster")
		n.logger.Error("roster card post failed", zap.String("team_id", roster.TeamID), zap.Error(err))
		return err
	}
	if err := n.rosters.RecordCardMessage(ctx, roster.TeamID, ref); err != nil {
		n.logger.Error("storing roster card linkage failed", zap.String("team_id", roster.TeamID), zap.Error(err))
		return err
	}
	return nil
}
