package cards

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// Action ids carried back by card buttons.
const (
	ActionReopen         = "reopen"
	ActionClose          = "close"
	ActionAssignToSelf   = "assign-self"
	ActionSetRequestType = "set-request-type"
	ActionWithdraw       = "withdraw"
)

// Card is the renderer-neutral display model handed to a chat dispatcher.
type Card struct {
	Title    string
	Subtitle string
	Facts    []Fact
	Inputs   []Input
	Actions  []Action
	Footer   string
}

// Fact is a label/value line.
type Fact struct {
	Label string
	Value string
}

// Input is one control on an intake form.
type Input struct {
	ID       string
	Label    string
	Kind     InputKind
	Value    string
	Choices  []string
	Required bool
	Invalid  bool
}

// Action is a button that posts a command back to the bot. Value holds the
// activity value the button submits, keyed the way the activity expects it.
type Action struct {
	ID    string
	Label string
	Value map[string]string
}

func transitionAction(id, label, ticketID string) Action {
	return Action{ID: id, Label: label, Value: map[string]string{"ticketId": ticketID, "action": id}}
}

// TicketCard renders the SME channel view of a ticket.
func TicketCard(t *domain.Ticket, fields []FieldSpec) *Card {
	card := &Card{
		Title:    fmt.Sprintf("Ticket #%s: %s", t.TicketID, t.Title),
		Subtitle: t.Description,
		Facts: []Fact{
			{Label: "Status", Value: StatusLabel(t)},
			{Label: "Request type", Value: string(t.RequestType)},
			{Label: "Requester", Value: t.RequesterName},
		},
		Footer: fmt.Sprintf("Last updated by %s on %s", t.LastModifiedByName, t.LastModifiedOn.UTC().Format(time.RFC1123)),
	}
	card.Facts = append(card.Facts, additionalFacts(t.AdditionalProperties, fields)...)

	switch t.Status {
	case domain.TicketStatusUnassigned:
		card.Actions = append(card.Actions,
			transitionAction(ActionAssignToSelf, "Assign to me", t.TicketID),
			transitionAction(ActionClose, "Close", t.TicketID))
	case domain.TicketStatusAssigned:
		card.Actions = append(card.Actions,
			transitionAction(ActionReopen, "Unassign", t.TicketID),
			transitionAction(ActionClose, "Close", t.TicketID))
	case domain.TicketStatusClosed, domain.TicketStatusWithdrawn:
		card.Actions = append(card.Actions,
			transitionAction(ActionReopen, "Reopen", t.TicketID))
	}
	for _, rt := range domain.RequestTypes {
		if rt == t.RequestType {
			continue
		}
		action := transitionAction(ActionSetRequestType, "Mark "+string(rt), t.TicketID)
		action.Value["requestType"] = string(rt)
		card.Actions = append(card.Actions, action)
	}
	return card
}

// RequesterCard renders the requester's confirmation view of a ticket.
func RequesterCard(t *domain.Ticket) *Card {
	card := &Card{
		Title:    fmt.Sprintf("Your request #%s", t.TicketID),
		Subtitle: t.Title,
		Facts: []Fact{
			{Label: "Status", Value: StatusLabel(t)},
			{Label: "Request type", Value: string(t.RequestType)},
		},
	}
	if t.Status != domain.TicketStatusClosed && t.Status != domain.TicketStatusWithdrawn {
		card.Actions = []Action{transitionAction(ActionWithdraw, "Withdraw", t.TicketID)}
	}
	return card
}

// IntakeCard renders the intake form, flagging invalid fields.
func IntakeCard(cardID string, fields []FieldSpec, values map[string]string, invalid []string) *Card {
	flagged := make(map[string]bool, len(invalid))
	for _, id := range invalid {
		flagged[id] = true
	}
	card := &Card{Title: "Ask an expert"}
	card.Inputs = append(card.Inputs,
		Input{ID: "title", Label: "Title", Kind: InputText, Value: values["title"], Required: true, Invalid: flagged["title"]},
		Input{ID: "description", Label: "Description", Kind: InputText, Value: values["description"], Required: true, Invalid: flagged["description"]},
	)
	for _, field := range fields {
		card.Inputs = append(card.Inputs, Input{
			ID:       field.ID,
			Label:    field.Label,
			Kind:     field.Kind,
			Value:    values[field.ID],
			Choices:  field.Choices,
			Required: field.Required,
			Invalid:  flagged[field.ID],
		})
	}
	card.Actions = []Action{{ID: "submit", Label: "Submit", Value: map[string]string{"cardId": cardID}}}
	return card
}

// RosterCard renders the current roster followed by prior versions.
func RosterCard(snapshot []domain.OnCallRoster) *Card {
	card := &Card{Title: "On-call experts"}
	for i, roster := range snapshot {
		label := "Current"
		if i > 0 {
			label = roster.ModifiedOn.UTC().Format("2006-01-02 15:04")
		}
		card.Facts = append(card.Facts, Fact{Label: label, Value: expertNames(roster.Experts)})
	}
	if len(snapshot) > 0 && snapshot[0].ModifiedByName != "" {
		card.Footer = "Updated by " + snapshot[0].ModifiedByName
	}
	return card
}

// StatusLabel describes the ticket status for display.
func StatusLabel(t *domain.Ticket) string {
	switch t.Status {
	case domain.TicketStatusAssigned:
		if t.AssignedToName != nil {
			return "Assigned to " + *t.AssignedToName
		}
		return "Assigned"
	case domain.TicketStatusClosed:
		if t.ClosedByName != nil {
			return "Closed by " + *t.ClosedByName
		}
		return "Closed"
	case domain.TicketStatusWithdrawn:
		return "Withdrawn"
	default:
		return "Unassigned"
	}
}

func additionalFacts(props map[string]string, fields []FieldSpec) []Fact {
	if len(props) == 0 {
		return nil
	}
	var facts []Fact
	used := map[string]bool{}
	for _, field := range fields {
		if field.Kind == InputTextBlock {
			continue
		}
		if value, ok := props[field.ID]; ok && value != "" {
			facts = append(facts, Fact{Label: field.Label, Value: value})
			used[field.ID] = true
		}
	}
	// Properties from an older template version still show, in key order.
	var rest []string
	for key := range props {
		if !used[key] && props[key] != "" {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		facts = append(facts, Fact{Label: key, Value: props[key]})
	}
	return facts
}

func expertNames(experts []domain.Expert) string {
	if len(experts) == 0 {
		return "(nobody)"
	}
	names := make([]string, 0, len(experts))
	for _, expert := range experts {
		names = append(names, expert.Name)
	}
	return strings.Join(names, ", ")
}
