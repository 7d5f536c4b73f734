package domain

import "time"

// TicketHistory is an immutable audit entry written for every applied transition.
type TicketHistory struct {
	ID            int64
	TicketID      string
	Transition    TransitionKind
	FromStatus    TicketStatus
	ToStatus      TicketStatus
	RequestType   RequestType
	ActorName     string
	ActorObjectID string
	CreatedOn     time.Time
}
