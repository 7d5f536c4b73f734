package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/chat"
	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// DefaultRosterHistoryLimit is how many prior rosters are shown under the current one.
const DefaultRosterHistoryLimit = 9

// MentionListUpdated is the text used when a roster update mentions nobody.
const MentionListUpdated = "The on-call list has been updated."

// UpdateRoster returns a copy of current with its expert list replaced. The
// roster identity and card linkage are preserved.
func UpdateRoster(current *domain.OnCallRoster, experts []domain.Expert, actor domain.Identity, now time.Time) *domain.OnCallRoster {
	next := current.Clone()
	if next == nil {
		next = &domain.OnCallRoster{}
	}
	next.Experts = append([]domain.Expert(nil), experts...)
	next.ModifiedByName = actor.Name
	next.ModifiedByObjectID = actor.ObjectID
	next.ModifiedOn = now
	return next
}

// BuildDisplaySnapshot returns current followed by at most limit history entries.
// History is expected most recent first.
func BuildDisplaySnapshot(current domain.OnCallRoster, history []domain.OnCallRoster, limit int) []domain.OnCallRoster {
	if limit <= 0 {
		limit = DefaultRosterHistoryLimit
	}
	if len(history) > limit {
		history = history[:limit]
	}
	snapshot := make([]domain.OnCallRoster, 0, 1+len(history))
	snapshot = append(snapshot, current)
	return append(snapshot, history...)
}

// MentionPayload builds the roster announcement text and its mention entities.
func MentionPayload(experts []domain.Expert) (string, []chat.Mention) {
	if len(experts) == 0 {
		return MentionListUpdated, []chat.Mention{}
	}
	parts := make([]string, 0, len(experts))
	mentions := make([]chat.Mention, 0, len(experts))
	for _, expert := range experts {
		text := fmt.Sprintf("<at>%s</at>", expert.Name)
		parts = append(parts, text)
		mentions = append(mentions, chat.Mention{
			Text:     text,
			ObjectID: expert.ObjectID,
			Name:     expert.Name,
		})
	}
	return strings.Join(parts, ", "), mentions
}
