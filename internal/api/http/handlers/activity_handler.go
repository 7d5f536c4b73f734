package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/api/dto"
	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

const replyTypeMessage = "message"

// ActivityHandler answers chat activities forwarded by the channel.
type ActivityHandler struct {
	tickets       *service.TicketService
	rosters       *service.RosterService
	defaultTeamID string
	logger        *zap.Logger
}

// NewActivityHandler constructs handler. Activities without channel team data
// act on defaultTeamID's roster.
func NewActivityHandler(tickets *service.TicketService, rosters *service.RosterService, defaultTeamID string, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{tickets: tickets, rosters: rosters, defaultTeamID: defaultTeamID, logger: logger}
}

// Handle POST /api/messages.
func (h *ActivityHandler) Handle(c *fiber.Ctx) error {
	var req dto.ActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	actor := actorIdentity(req.From)
	if actor.ObjectID == "" {
		return apperrors.NewValidationError("from.id required", nil)
	}

	ctx := c.UserContext()
	switch req.Name {
	case dto.ActivityTicketCreate:
		return h.createTicket(ctx, c, req, actor)
	case dto.ActivityTicketTransition:
		return h.transition(ctx, c, req, actor)
	case dto.ActivityRosterUpdate:
		return h.updateRoster(ctx, c, req, actor)
	case dto.ActivityRosterShow:
		return h.showRoster(ctx, c, req)
	default:
		h.logger.Warn("unsupported activity", zap.String("name", req.Name), zap.String("activity_id", req.ID))
		return apperrors.NewValidationError("unsupported activity", map[string]any{"name": req.Name})
	}
}

func (h *ActivityHandler) createTicket(ctx context.Context, c *fiber.Ctx, req dto.ActivityRequest, actor domain.Identity) error {
	var value dto.CreateTicketValue
	if err := decodeValue(req.Value, &value); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(ctx, service.IntakeInput{
		CardID:                  value.CardID,
		Title:                   value.Title,
		Description:             value.Description,
		RequestType:             value.RequestType,
		AdditionalProperties:    value.Properties,
		Requester:               actor,
		RequesterConversationID: req.Conversation.ID,
	})
	if err != nil {
		if fields := apperrors.InvalidFields(err); len(fields) > 0 {
			values := map[string]string{"title": value.Title, "description": value.Description}
			for k, v := range value.Properties {
				values[k] = v
			}
			card := cards.IntakeCard(value.CardID, h.tickets.FieldTemplate(value.CardID), values, fields)
			return c.JSON(dto.ActivityResponse{
				Type:        replyTypeMessage,
				Text:        apperrors.UserMessage(err),
				Card:        cardResponse(card),
				FieldErrors: fields,
			})
		}
		return h.replyError(c, req, err)
	}

	return c.JSON(dto.ActivityResponse{
		Type: replyTypeMessage,
		Text: fmt.Sprintf("Ticket #%s has been created.", ticket.TicketID),
		Card: cardResponse(cards.RequesterCard(ticket)),
	})
}

func (h *ActivityHandler) transition(ctx context.Context, c *fiber.Ctx, req dto.ActivityRequest, actor domain.Identity) error {
	var value dto.TransitionValue
	if err := decodeValue(req.Value, &value); err != nil {
		return err
	}
	kind, ok := domain.ParseTransitionKind(value.Action)
	if !ok {
		h.logger.Warn("unknown transition ignored",
			zap.String("action", value.Action),
			zap.String("ticket_id", value.TicketID),
			zap.String("activity_id", req.ID))
		return c.Status(fiber.StatusOK).Send(nil)
	}

	result, err := h.tickets.Transition(ctx, strings.TrimSpace(value.TicketID), domain.Transition{Kind: kind, RequestType: value.RequestType}, actor)
	if err != nil {
		return h.replyError(c, req, err)
	}

	ticket := result.Ticket
	card := cards.TicketCard(ticket, h.tickets.FieldTemplate(ticket.CardID))
	if actor.ObjectID == ticket.RequesterObjectID && kind == domain.TransitionWithdraw {
		card = cards.RequesterCard(ticket)
	}
	return c.JSON(dto.ActivityResponse{
		Type: replyTypeMessage,
		Text: result.Notices.SME,
		Card: cardResponse(card),
	})
}

func (h *ActivityHandler) updateRoster(ctx context.Context, c *fiber.Ctx, req dto.ActivityRequest, actor domain.Identity) error {
	var value dto.RosterUpdateValue
	if err := decodeValue(req.Value, &value); err != nil {
		return err
	}
	result, err := h.rosters.Update(ctx, h.teamID(req), value.Experts, actor)
	if err != nil {
		if fields := apperrors.InvalidFields(err); len(fields) > 0 {
			return c.JSON(dto.ActivityResponse{Type: replyTypeMessage, Text: apperrors.UserMessage(err), FieldErrors: fields})
		}
		return h.replyError(c, req, err)
	}
	return c.JSON(dto.ActivityResponse{
		Type:     replyTypeMessage,
		Text:     result.MentionText,
		Mentions: mentionResponses(result.Mentions),
		Card:     cardResponse(cards.RosterCard(result.Snapshot)),
	})
}

func (h *ActivityHandler) showRoster(ctx context.Context, c *fiber.Ctx, req dto.ActivityRequest) error {
	snapshot, err := h.rosters.Snapshot(ctx, h.teamID(req))
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return c.JSON(dto.ActivityResponse{Type: replyTypeMessage, Text: "No on-call experts have been set for this team yet."})
	}
	if err != nil {
		return h.replyError(c, req, err)
	}
	text, mentions := service.MentionPayload(snapshot[0].Experts)
	return c.JSON(dto.ActivityResponse{
		Type:     replyTypeMessage,
		Text:     text,
		Mentions: mentionResponses(mentions),
		Card:     cardResponse(cards.RosterCard(snapshot)),
	})
}

// replyError answers in chat rather than failing the request; the channel
// shows the text to whoever pressed the button.
func (h *ActivityHandler) replyError(c *fiber.Ctx, req dto.ActivityRequest, err error) error {
	domainErr := apperrors.ToDomainError(err)
	fields := []zap.Field{
		zap.String("activity", req.Name),
		zap.String("activity_id", req.ID),
		zap.String("code", domainErr.Code),
		zap.Error(err),
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		h.logger.Error("activity failed", fields...)
	} else {
		h.logger.Info("activity rejected", fields...)
	}
	return c.JSON(dto.ActivityResponse{Type: replyTypeMessage, Text: apperrors.UserMessage(err)})
}

func (h *ActivityHandler) teamID(req dto.ActivityRequest) string {
	if id := strings.TrimSpace(req.ChannelData.TeamID); id != "" {
		return id
	}
	return h.defaultTeamID
}

func actorIdentity(from dto.ChannelAccount) domain.Identity {
	objectID := from.AADObjectID
	if objectID == "" {
		objectID = from.ID
	}
	return domain.Identity{ObjectID: objectID, Name: from.Name}
}

func decodeValue(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return apperrors.NewValidationError("activity value required", nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewValidationError("invalid activity value", nil)
	}
	return nil
}
