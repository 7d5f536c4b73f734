package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type sqliteTicketHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteTicketHistoryRepository instantiates the SQLite audit store.
func NewSQLiteTicketHistoryRepository(db *sql.DB) TicketHistoryRepository {
	return &sqliteTicketHistoryRepository{db: db}
}

func (r *sqliteTicketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ticket_history (ticket_id, transition, from_status, to_status, request_type, actor_name, actor_object_id, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		history.TicketID,
		history.Transition.String(),
		string(history.FromStatus),
		string(history.ToStatus),
		string(history.RequestType),
		history.ActorName,
		history.ActorObjectID,
		formatTime(history.CreatedOn),
	)
	if err != nil {
		return fmt.Errorf("history store: create %s: %w", history.TicketID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("history store: create %s: %w", history.TicketID, err)
	}
	history.ID = id
	return nil
}

func (r *sqliteTicketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ticket_id, transition, from_status, to_status, request_type, actor_name, actor_object_id, created_on
		FROM ticket_history WHERE ticket_id = ? ORDER BY id ASC`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("history store: list %s: %w", ticketID, err)
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var (
			history                           domain.TicketHistory
			transition, from, to, rt, created string
		)
		if err := rows.Scan(&history.ID, &history.TicketID, &transition, &from, &to, &rt,
			&history.ActorName, &history.ActorObjectID, &created); err != nil {
			return nil, fmt.Errorf("history store: scan: %w", err)
		}
		history.Transition, _ = domain.ParseTransitionKind(transition)
		history.FromStatus = domain.TicketStatus(from)
		history.ToStatus = domain.TicketStatus(to)
		history.RequestType = domain.RequestType(rt)
		if history.CreatedOn, err = parseTime(created); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
