package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// RosterResponse is one roster version.
type RosterResponse struct {
	OnCallSupportID    string          `json:"on_call_support_id"`
	TeamID             string          `json:"team_id"`
	Experts            []domain.Expert `json:"experts"`
	CardActivityID     string          `json:"card_activity_id,omitempty"`
	ConversationID     string          `json:"conversation_id,omitempty"`
	ModifiedByName     string          `json:"modified_by_name"`
	ModifiedByObjectID string          `json:"modified_by_object_id"`
	ModifiedOn         time.Time       `json:"modified_on"`
}

// RosterSnapshotResponse is the current roster followed by recent history.
type RosterSnapshotResponse struct {
	Current RosterResponse   `json:"current"`
	History []RosterResponse `json:"history"`
}
