package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket.created"
	EventTicketTransitioned EventType = "ticket.transitioned"
	EventRosterUpdated      EventType = "roster.updated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TicketID  string          `json:"ticket_id,omitempty"`
	TeamID    string          `json:"team_id,omitempty"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// NewEvent stamps a fresh id onto an event.
func NewEvent(eventType EventType, actor domain.Identity, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketCreatedPayload carries the stored ticket.
type TicketCreatedPayload struct {
	Ticket *domain.Ticket `json:"ticket"`
}

// TicketTransitionedPayload carries the stored ticket and the notices the
// transition produced.
type TicketTransitionedPayload struct {
	Kind            domain.TransitionKind `json:"kind"`
	PreviousStatus  domain.TicketStatus   `json:"previous_status"`
	Ticket          *domain.Ticket        `json:"ticket"`
	SMENotice       string                `json:"sme_notice"`
	RequesterNotice string                `json:"requester_notice,omitempty"`
	RequesterCard   bool                  `json:"requester_card,omitempty"`
}

// RosterUpdatedPayload carries the new roster and what to render for it.
type RosterUpdatedPayload struct {
	Roster      *domain.OnCallRoster  `json:"roster"`
	Snapshot    []domain.OnCallRoster `json:"snapshot"`
	MentionText string                `json:"mention_text"`
	Mentions    []chat.Mention        `json:"mentions"`
}
