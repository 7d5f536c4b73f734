package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	// ListByTicket returns entries oldest first.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, transition, from_status, to_status, request_type, actor_name, actor_object_id, created_on)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		history.TicketID,
		history.Transition.String(),
		history.FromStatus,
		history.ToStatus,
		history.RequestType,
		history.ActorName,
		history.ActorObjectID,
		history.CreatedOn,
	).Scan(&history.ID)
	if err != nil {
		return fmt.Errorf("history store: create %s: %w", history.TicketID, err)
	}
	return nil
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, transition, from_status, to_status, request_type, actor_name, actor_object_id, created_on
        FROM ticket_history WHERE ticket_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("history store: list %s: %w", ticketID, err)
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var (
			history    domain.TicketHistory
			transition string
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&transition,
			&history.FromStatus,
			&history.ToStatus,
			&history.RequestType,
			&history.ActorName,
			&history.ActorObjectID,
			&history.CreatedOn,
		); err != nil {
			return nil, fmt.Errorf("history store: scan: %w", err)
		}
		history.Transition, _ = domain.ParseTransitionKind(transition)
		result = append(result, history)
	}
	return result, rows.Err()
}
