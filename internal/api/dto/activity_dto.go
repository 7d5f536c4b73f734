package dto

import "encoding/json"

// Activity names understood by the bot.
const (
	ActivityTicketCreate     = "ticket/create"
	ActivityTicketTransition = "ticket/transition"
	ActivityRosterUpdate     = "roster/update"
	ActivityRosterShow       = "roster/show"
)

// ActivityRequest is an inbound chat activity forwarded by the channel.
type ActivityRequest struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Name         string          `json:"name"`
	From         ChannelAccount  `json:"from"`
	Conversation Conversation    `json:"conversation"`
	ChannelData  ChannelData     `json:"channelData"`
	Value        json.RawMessage `json:"value"`
}

// ChannelAccount identifies the user behind an activity.
type ChannelAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AADObjectID string `json:"aadObjectId"`
}

// Conversation identifies where an activity was sent from.
type Conversation struct {
	ID string `json:"id"`
}

// ChannelData carries channel specific context.
type ChannelData struct {
	TeamID string `json:"teamId"`
}

// CreateTicketValue is the submitted intake form.
type CreateTicketValue struct {
	CardID      string            `json:"cardId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	RequestType string            `json:"requestType"`
	Properties  map[string]string `json:"properties"`
}

// TransitionValue is a card button press.
type TransitionValue struct {
	TicketID    string `json:"ticketId"`
	Action      string `json:"action"`
	RequestType string `json:"requestType"`
}

// RosterUpdateValue lists the member ids to put on call.
type RosterUpdateValue struct {
	Experts []string `json:"experts"`
}

// ActivityResponse is the bot's reply.
type ActivityResponse struct {
	Type        string            `json:"type"`
	Text        string            `json:"text,omitempty"`
	Card        *CardResponse     `json:"card,omitempty"`
	Mentions    []MentionResponse `json:"mentions,omitempty"`
	FieldErrors []string          `json:"fieldErrors,omitempty"`
}

// MentionResponse is one mention entity in a reply.
type MentionResponse struct {
	Text     string `json:"text"`
	ObjectID string `json:"objectId"`
	Name     string `json:"name"`
}
