package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an update was based on a stale version.
	ErrVersionConflict = errors.New("version conflict")
)

// TicketFilter captures admin search parameters.
type TicketFilter struct {
	Statuses           []domain.TicketStatus
	RequestTypes       []domain.RequestType
	RequesterObjectID  *string
	AssignedToObjectID *string
	SearchTerm         *string
	Limit              int
	Offset             int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create inserts a new ticket and sets its Version to 1.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update stores ticket if the stored version still equals ticket.Version,
	// then increments ticket.Version.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

// RosterRepository stores the current on-call roster per team and its history.
type RosterRepository interface {
	Current(ctx context.Context, teamID string) (*domain.OnCallRoster, error)
	// History returns prior rosters, most recent first.
	History(ctx context.Context, teamID string, limit int) ([]domain.OnCallRoster, error)
	// Save archives the existing current roster and stores roster as current.
	Save(ctx context.Context, roster *domain.OnCallRoster) error
	UpdateCardLinkage(ctx context.Context, teamID, conversationID, activityID string) error
}

// IDGenerator hands out monotonically increasing ticket ids.
type IDGenerator interface {
	Next(ctx context.Context) (string, error)
}

const defaultListLimit = 20

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
