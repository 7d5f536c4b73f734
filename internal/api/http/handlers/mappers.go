package handlers

import (
	"github.com/spec-kit/helpdesk-bot/internal/api/dto"
	"github.com/spec-kit/helpdesk-bot/internal/cards"
	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		TicketID:       ticket.TicketID,
		Title:          ticket.Title,
		Status:         ticket.Status,
		RequestType:    ticket.RequestType,
		RequesterName:  ticket.RequesterName,
		AssignedToName: ticket.AssignedToName,
		CreatedOn:      ticket.CreatedOn,
		LastModifiedOn: ticket.LastModifiedOn,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistory) dto.TicketDetailResponse {
	props := ticket.AdditionalProperties
	if props == nil {
		props = map[string]string{}
	}
	entries := make([]dto.TicketHistoryResponse, 0, len(history))
	for _, entry := range history {
		entries = append(entries, dto.TicketHistoryResponse{
			ID:            entry.ID,
			Transition:    entry.Transition.String(),
			FromStatus:    entry.FromStatus,
			ToStatus:      entry.ToStatus,
			RequestType:   entry.RequestType,
			ActorName:     entry.ActorName,
			ActorObjectID: entry.ActorObjectID,
			CreatedOn:     entry.CreatedOn,
		})
	}
	return dto.TicketDetailResponse{
		TicketID:                ticket.TicketID,
		CardID:                  ticket.CardID,
		Title:                   ticket.Title,
		Description:             ticket.Description,
		Status:                  ticket.Status,
		RequestType:             ticket.RequestType,
		AdditionalProperties:    props,
		RequesterName:           ticket.RequesterName,
		RequesterObjectID:       ticket.RequesterObjectID,
		RequesterConversationID: ticket.RequesterConversationID,
		AssignedToName:          ticket.AssignedToName,
		AssignedToObjectID:      ticket.AssignedToObjectID,
		ClosedByName:            ticket.ClosedByName,
		ClosedOn:                ticket.ClosedOn,
		LastModifiedByName:      ticket.LastModifiedByName,
		LastModifiedByObjectID:  ticket.LastModifiedByObjectID,
		LastModifiedOn:          ticket.LastModifiedOn,
		SMEConversationID:       ticket.SMEConversationID,
		SMETicketActivityID:     ticket.SMETicketActivityID,
		CreatedOn:               ticket.CreatedOn,
		Version:                 ticket.Version,
		History:                 entries,
	}
}

func rosterResponse(roster domain.OnCallRoster) dto.RosterResponse {
	experts := roster.Experts
	if experts == nil {
		experts = []domain.Expert{}
	}
	return dto.RosterResponse{
		OnCallSupportID:    roster.OnCallSupportID,
		TeamID:             roster.TeamID,
		Experts:            experts,
		CardActivityID:     roster.CardActivityID,
		ConversationID:     roster.ConversationID,
		ModifiedByName:     roster.ModifiedByName,
		ModifiedByObjectID: roster.ModifiedByObjectID,
		ModifiedOn:         roster.ModifiedOn,
	}
}

func cardResponse(card *cards.Card) *dto.CardResponse {
	if card == nil {
		return nil
	}
	resp := &dto.CardResponse{Title: card.Title, Subtitle: card.Subtitle, Footer: card.Footer}
	for _, fact := range card.Facts {
		resp.Facts = append(resp.Facts, dto.FactResponse{Label: fact.Label, Value: fact.Value})
	}
	for _, input := range card.Inputs {
		resp.Inputs = append(resp.Inputs, dto.InputResponse{
			ID:       input.ID,
			Label:    input.Label,
			Kind:     string(input.Kind),
			Value:    input.Value,
			Choices:  input.Choices,
			Required: input.Required,
			Invalid:  input.Invalid,
		})
	}
	for _, action := range card.Actions {
		resp.Actions = append(resp.Actions, dto.ActionResponse{ID: action.ID, Label: action.Label, Value: action.Value})
	}
	return resp
}

func mentionResponses(mentions []chat.Mention) []dto.MentionResponse {
	out := make([]dto.MentionResponse, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, dto.MentionResponse{Text: m.Text, ObjectID: m.ObjectID, Name: m.Name})
	}
	return out
}
