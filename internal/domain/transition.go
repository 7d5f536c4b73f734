package domain

import "strings"

// TransitionKind is the closed set of actions that move a ticket.
type TransitionKind int

const (
	TransitionReopen TransitionKind = iota + 1
	TransitionClose
	TransitionAssignToSelf
	TransitionSetRequestType
	TransitionWithdraw
)

var transitionNames = map[TransitionKind]string{
	TransitionReopen:         "reopen",
	TransitionClose:          "close",
	TransitionAssignToSelf:   "assign-self",
	TransitionSetRequestType: "set-request-type",
	TransitionWithdraw:       "withdraw",
}

func (k TransitionKind) String() string {
	if name, ok := transitionNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseTransitionKind decodes the wire name of a transition. It is the only
// place an unrecognized command can enter the system.
func ParseTransitionKind(name string) (TransitionKind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, candidate := range transitionNames {
		if candidate == name {
			return kind, true
		}
	}
	return 0, false
}

// Transition is a requested lifecycle action and its payload.
type Transition struct {
	Kind        TransitionKind
	RequestType string
}
