package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// Notices carries the text produced by a transition for each audience.
type Notices struct {
	SME       string
	Requester string
	// RequesterCard asks the caller to show the requester a confirmation card
	// instead of a text notice.
	RequesterCard bool
}

// IntakeInput is the submitted intake form.
type IntakeInput struct {
	CardID                  string
	Title                   string
	Description             string
	RequestType             string
	AdditionalProperties    map[string]string
	Requester               domain.Identity
	RequesterConversationID string
}

// ValidateIntake checks the fixed and template-defined fields of an intake.
// It returns a VALIDATION_FAILED error listing every offending field id.
func ValidateIntake(input IntakeInput, fields []cards.FieldSpec) error {
	var invalid []string
	if strings.TrimSpace(input.Title) == "" {
		invalid = append(invalid, "title")
	}
	if strings.TrimSpace(input.Description) == "" {
		invalid = append(invalid, "description")
	}
	if input.RequestType != "" {
		if _, ok := domain.ParseRequestType(input.RequestType); !ok {
			invalid = append(invalid, "requestType")
		}
	}
	invalid = append(invalid, cards.ValidateFields(fields, input.AdditionalProperties)...)
	if len(invalid) > 0 {
		return apperrors.NewValidationFailed(invalid)
	}
	return nil
}

// NewTicketRecord builds a fresh Unassigned ticket from a validated intake.
func NewTicketRecord(input IntakeInput, ticketID string, now time.Time) *domain.Ticket {
	requestType := domain.RequestTypeNormal
	if rt, ok := domain.ParseRequestType(input.RequestType); ok {
		requestType = rt
	}
	cardID := input.CardID
	if cardID == "" {
		cardID = cards.DefaultCardID
	}
	props := make(map[string]string, len(input.AdditionalProperties))
	for k, v := range input.AdditionalProperties {
		props[k] = strings.TrimSpace(v)
	}
	ticket := &domain.Ticket{
		TicketID:                ticketID,
		CardID:                  cardID,
		Status:                  domain.TicketStatusUnassigned,
		Title:                   strings.TrimSpace(input.Title),
		Description:             strings.TrimSpace(input.Description),
		RequestType:             requestType,
		AdditionalProperties:    props,
		RequesterName:           input.Requester.Name,
		RequesterObjectID:       input.Requester.ObjectID,
		RequesterConversationID: input.RequesterConversationID,
		CreatedOn:               now,
	}
	ticket.Touch(input.Requester, now)
	return ticket
}

// ApplyTransition computes the ticket that results from tr. The input ticket is
// never modified; on error it is returned to the caller untouched.
func ApplyTransition(current *domain.Ticket, tr domain.Transition, actor domain.Identity, now time.Time) (*domain.Ticket, Notices, error) {
	next := current.Clone()
	var notices Notices

	switch tr.Kind {
	case domain.TransitionReopen:
		next.Status = domain.TicketStatusUnassigned
		clearAssignee(next)
		clearClosure(next)
		notices.SME = fmt.Sprintf("Unassigned by %s", actor.Name)
		notices.Requester = fmt.Sprintf("Ticket %s reopened", next.TicketID)

	case domain.TransitionClose:
		next.Status = domain.TicketStatusClosed
		clearAssignee(next)
		closedBy := actor.Name
		closedOn := now
		next.ClosedByName = &closedBy
		next.ClosedOn = &closedOn
		notices.SME = fmt.Sprintf("Closed by %s", actor.Name)
		notices.Requester = fmt.Sprintf("Ticket %s closed", next.TicketID)

	case domain.TransitionAssignToSelf:
		if current.Status.Terminal() {
			return current, Notices{}, apperrors.NewInvalidTransition(current.TicketID, string(current.Status), tr.Kind.String())
		}
		next.Status = domain.TicketStatusAssigned
		name, objectID := actor.Name, actor.ObjectID
		next.AssignedToName = &name
		next.AssignedToObjectID = &objectID
		clearClosure(next)
		notices.SME = fmt.Sprintf("Assigned to %s", actor.Name)
		notices.Requester = fmt.Sprintf("Ticket %s assigned", next.TicketID)

	case domain.TransitionSetRequestType:
		rt, ok := domain.ParseRequestType(tr.RequestType)
		if !ok {
			return current, Notices{}, apperrors.NewInvalidSeverity(tr.RequestType)
		}
		next.RequestType = rt
		notices.SME = fmt.Sprintf("Severity set to %s by %s", rt, actor.Name)
		notices.Requester = fmt.Sprintf("Ticket %s updated", next.TicketID)

	case domain.TransitionWithdraw:
		if current.Status == domain.TicketStatusClosed {
			return current, Notices{}, apperrors.NewTicketAlreadyClosed(current.TicketID)
		}
		if actor.ObjectID != current.RequesterObjectID {
			return current, Notices{}, apperrors.NewForbidden("only the requester can withdraw a ticket")
		}
		next.Status = domain.TicketStatusWithdrawn
		clearAssignee(next)
		notices.SME = "Withdrawn by requester"
		notices.RequesterCard = true

	default:
		return current, Notices{}, apperrors.NewUnknownTransition(tr.Kind.String())
	}

	next.Touch(actor, now)
	return next, notices, nil
}

func clearAssignee(t *domain.Ticket) {
	t.AssignedToName = nil
	t.AssignedToObjectID = nil
}

func clearClosure(t *domain.Ticket) {
	t.ClosedByName = nil
	t.ClosedOn = nil
}
