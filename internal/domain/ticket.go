package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusUnassigned TicketStatus = "UNASSIGNED"
	TicketStatusAssigned   TicketStatus = "ASSIGNED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusWithdrawn  TicketStatus = "WITHDRAWN"
)

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusUnassigned, TicketStatusAssigned, TicketStatusClosed, TicketStatusWithdrawn:
		return true
	}
	return false
}

// Terminal reports whether the ticket needs a reopen before it can be worked again.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusWithdrawn
}

// RequestType is the severity label chosen at intake or by an SME.
type RequestType string

const (
	RequestTypeNormal RequestType = "Normal"
	RequestTypeUrgent RequestType = "Urgent"
)

// RequestTypes lists the recognized severities in display order.
var RequestTypes = []RequestType{RequestTypeNormal, RequestTypeUrgent}

// ParseRequestType matches a label case-insensitively against the known severities.
func ParseRequestType(label string) (RequestType, bool) {
	for _, rt := range RequestTypes {
		if strings.EqualFold(string(rt), strings.TrimSpace(label)) {
			return rt, true
		}
	}
	return "", false
}

// Identity is the chat user performing an action.
type Identity struct {
	ObjectID string
	Name     string
}

// Ticket is the record tracked through the help-desk lifecycle.
type Ticket struct {
	TicketID    string
	CardID      string
	Status      TicketStatus
	Title       string
	Description string
	RequestType RequestType

	AdditionalProperties map[string]string

	RequesterName           string
	RequesterObjectID       string
	RequesterConversationID string

	AssignedToName     *string
	AssignedToObjectID *string

	ClosedByName *string
	ClosedOn     *time.Time

	LastModifiedByName     string
	LastModifiedByObjectID string
	LastModifiedOn         time.Time

	SMEConversationID   string
	SMETicketActivityID string

	CreatedOn time.Time
	Version   int64
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	if t.AdditionalProperties != nil {
		out.AdditionalProperties = make(map[string]string, len(t.AdditionalProperties))
		for k, v := range t.AdditionalProperties {
			out.AdditionalProperties[k] = v
		}
	}
	out.AssignedToName = cloneString(t.AssignedToName)
	out.AssignedToObjectID = cloneString(t.AssignedToObjectID)
	out.ClosedByName = cloneString(t.ClosedByName)
	if t.ClosedOn != nil {
		closed := *t.ClosedOn
		out.ClosedOn = &closed
	}
	return &out
}

// Touch stamps the audit triple.
func (t *Ticket) Touch(actor Identity, now time.Time) {
	t.LastModifiedByName = actor.Name
	t.LastModifiedByObjectID = actor.ObjectID
	t.LastModifiedOn = now
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
