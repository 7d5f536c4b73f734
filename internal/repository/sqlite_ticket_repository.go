package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type sqliteTicketRepository struct {
	db *sql.DB
}

// NewSQLiteTicketRepository instantiates the SQLite ticket repository.
func NewSQLiteTicketRepository(db *sql.DB) TicketRepository {
	return &sqliteTicketRepository{db: db}
}

func (r *sqliteTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	props, err := encodeProperties(ticket.AdditionalProperties)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		ticket.TicketID,
		ticket.CardID,
		string(ticket.Status),
		ticket.Title,
		ticket.Description,
		string(ticket.RequestType),
		string(props),
		ticket.RequesterName,
		ticket.RequesterObjectID,
		ticket.RequesterConversationID,
		ticket.AssignedToName,
		ticket.AssignedToObjectID,
		ticket.ClosedByName,
		formatOptionalTime(ticket.ClosedOn),
		ticket.LastModifiedByName,
		ticket.LastModifiedByObjectID,
		formatTime(ticket.LastModifiedOn),
		ticket.SMEConversationID,
		ticket.SMETicketActivityID,
		formatTime(ticket.CreatedOn),
	)
	if err != nil {
		return fmt.Errorf("ticket store: insert %s: %w", ticket.TicketID, err)
	}
	ticket.Version = 1
	return nil
}

func (r *sqliteTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	props, err := encodeProperties(ticket.AdditionalProperties)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE tickets SET card_id = ?, status = ?, title = ?, description = ?, request_type = ?,
			additional_properties = ?, assigned_to_name = ?, assigned_to_object_id = ?,
			closed_by_name = ?, closed_on = ?, last_modified_by_name = ?,
			last_modified_by_object_id = ?, last_modified_on = ?,
			sme_conversation_id = ?, sme_ticket_activity_id = ?, version = version + 1
		WHERE ticket_id = ? AND version = ?`,
		ticket.CardID,
		string(ticket.Status),
		ticket.Title,
		ticket.Description,
		string(ticket.RequestType),
		string(props),
		ticket.AssignedToName,
		ticket.AssignedToObjectID,
		ticket.ClosedByName,
		formatOptionalTime(ticket.ClosedOn),
		ticket.LastModifiedByName,
		ticket.LastModifiedByObjectID,
		formatTime(ticket.LastModifiedOn),
		ticket.SMEConversationID,
		ticket.SMETicketActivityID,
		ticket.TicketID,
		ticket.Version,
	)
	if err != nil {
		return fmt.Errorf("ticket store: update %s: %w", ticket.TicketID, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE ticket_id = ?`, ticket.TicketID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ticket store: update %s: %w", ticket.TicketID, err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`, id)
	ticket, err := scanSQLiteTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticket store: get %s: %w", id, err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE 1=1`
	var args []any

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " AND status IN (" + strings.Join(placeholders, ",") + ")"
	}
	if len(filter.RequestTypes) > 0 {
		placeholders := make([]string, len(filter.RequestTypes))
		for i, rt := range filter.RequestTypes {
			placeholders[i] = "?"
			args = append(args, string(rt))
		}
		query += " AND request_type IN (" + strings.Join(placeholders, ",") + ")"
	}
	if filter.RequesterObjectID != nil {
		query += " AND requester_object_id = ?"
		args = append(args, *filter.RequesterObjectID)
	}
	if filter.AssignedToObjectID != nil {
		query += " AND assigned_to_object_id = ?"
		args = append(args, *filter.AssignedToObjectID)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		query += " AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)"
		args = append(args, pattern, pattern)
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY last_modified_on DESC LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, rows.Err()
}

func scanSQLiteTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket                     domain.Ticket
		status, requestType, props string
		closedOn                   sql.NullString
		lastModifiedOn, createdOn  string
	)
	if err := row.Scan(
		&ticket.TicketID,
		&ticket.CardID,
		&status,
		&ticket.Title,
		&ticket.Description,
		&requestType,
		&props,
		&ticket.RequesterName,
		&ticket.RequesterObjectID,
		&ticket.RequesterConversationID,
		&ticket.AssignedToName,
		&ticket.AssignedToObjectID,
		&ticket.ClosedByName,
		&closedOn,
		&ticket.LastModifiedByName,
		&ticket.LastModifiedByObjectID,
		&lastModifiedOn,
		&ticket.SMEConversationID,
		&ticket.SMETicketActivityID,
		&createdOn,
		&ticket.Version,
	); err != nil {
		return nil, err
	}

	ticket.Status = domain.TicketStatus(status)
	ticket.RequestType = domain.RequestType(requestType)
	var err error
	if ticket.AdditionalProperties, err = decodeProperties([]byte(props)); err != nil {
		return nil, err
	}
	if closedOn.Valid {
		t, err := parseTime(closedOn.String)
		if err != nil {
			return nil, err
		}
		ticket.ClosedOn = &t
	}
	if ticket.LastModifiedOn, err = parseTime(lastModifiedOn); err != nil {
		return nil, err
	}
	if ticket.CreatedOn, err = parseTime(createdOn); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// timeLayout keeps every stored timestamp the same width so TEXT ordering
// matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
