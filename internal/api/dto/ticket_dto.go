package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// TicketSummary is the admin list view of a ticket.
type TicketSummary struct {
	TicketID       string              `json:"ticket_id"`
	Title          string              `json:"title"`
	Status         domain.TicketStatus `json:"status"`
	RequestType    domain.RequestType  `json:"request_type"`
	RequesterName  string              `json:"requester_name"`
	AssignedToName *string             `json:"assigned_to_name"`
	CreatedOn      time.Time           `json:"created_on"`
	LastModifiedOn time.Time           `json:"last_modified_on"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketID                string                  `json:"ticket_id"`
	CardID                  string                  `json:"card_id"`
	Title                   string                  `json:"title"`
	Description             string                  `json:"description"`
	Status                  domain.TicketStatus     `json:"status"`
	RequestType             domain.RequestType      `json:"request_type"`
	AdditionalProperties    map[string]string       `json:"additional_properties"`
	RequesterName           string                  `json:"requester_name"`
	RequesterObjectID       string                  `json:"requester_object_id"`
	RequesterConversationID string                  `json:"requester_conversation_id"`
	AssignedToName          *string                 `json:"assigned_to_name"`
	AssignedToObjectID      *string                 `json:"assigned_to_object_id"`
	ClosedByName            *string                 `json:"closed_by_name"`
	ClosedOn                *time.Time              `json:"closed_on"`
	LastModifiedByName      string                  `json:"last_modified_by_name"`
	LastModifiedByObjectID  string                  `json:"last_modified_by_object_id"`
	LastModifiedOn          time.Time               `json:"last_modified_on"`
	SMEConversationID       string                  `json:"sme_conversation_id"`
	SMETicketActivityID     string                  `json:"sme_ticket_activity_id"`
	CreatedOn               time.Time               `json:"created_on"`
	Version                 int64                   `json:"version"`
	History                 []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse is one applied transition.
type TicketHistoryResponse struct {
	ID            int64               `json:"id"`
	Transition    string              `json:"transition"`
	FromStatus    domain.TicketStatus `json:"from_status"`
	ToStatus      domain.TicketStatus `json:"to_status"`
	RequestType   domain.RequestType  `json:"request_type"`
	ActorName     string              `json:"actor_name"`
	ActorObjectID string              `json:"actor_object_id"`
	CreatedOn     time.Time           `json:"created_on"`
}
