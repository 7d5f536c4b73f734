package domain

import "time"

// Expert is an on-call member as shown on the roster card.
type Expert struct {
	ObjectID string `json:"objectId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// OnCallRoster is one version of a team's on-call list. The latest record per
// team is the current roster; earlier versions are kept as history.
type OnCallRoster struct {
	OnCallSupportID string
	TeamID          string
	Experts         []Expert

	CardActivityID string
	ConversationID string

	ModifiedByName     string
	ModifiedByObjectID string
	ModifiedOn         time.Time
}

// Clone copies the roster including its expert slice.
func (r *OnCallRoster) Clone() *OnCallRoster {
	if r == nil {
		return nil
	}
	out := *r
	out.Experts = append([]Expert(nil), r.Experts...)
	return &out
}
