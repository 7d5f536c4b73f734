package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

const ticketColumns = `ticket_id, card_id, status, title, description, request_type, additional_properties,
               requester_name, requester_object_id, requester_conversation_id,
               assigned_to_name, assigned_to_object_id, closed_by_name, closed_on,
               last_modified_by_name, last_modified_by_object_id, last_modified_on,
               sme_conversation_id, sme_ticket_activity_id, created_on, version`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the PostgreSQL ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	props, err := encodeProperties(ticket.AdditionalProperties)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,1)`
	if _, err := r.pool.Exec(ctx, query,
		ticket.TicketID,
		ticket.CardID,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.RequestType,
		props,
		ticket.RequesterName,
		ticket.RequesterObjectID,
		ticket.RequesterConversationID,
		ticket.AssignedToName,
		ticket.AssignedToObjectID,
		ticket.ClosedByName,
		ticket.ClosedOn,
		ticket.LastModifiedByName,
		ticket.LastModifiedByObjectID,
		ticket.LastModifiedOn,
		ticket.SMEConversationID,
		ticket.SMETicketActivityID,
		ticket.CreatedOn,
	); err != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.TicketID, err)
	}
	ticket.Version = 1
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	props, err := encodeProperties(ticket.AdditionalProperties)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET card_id=$1, status=$2, title=$3, description=$4, request_type=$5,
            additional_properties=$6, assigned_to_name=$7, assigned_to_object_id=$8,
            closed_by_name=$9, closed_on=$10, last_modified_by_name=$11,
            last_modified_by_object_id=$12, last_modified_on=$13,
            sme_conversation_id=$14, sme_ticket_activity_id=$15, version=version+1
        WHERE ticket_id=$16 AND version=$17`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CardID,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.RequestType,
		props,
		ticket.AssignedToName,
		ticket.AssignedToObjectID,
		ticket.ClosedByName,
		ticket.ClosedOn,
		ticket.LastModifiedByName,
		ticket.LastModifiedByObjectID,
		ticket.LastModifiedOn,
		ticket.SMEConversationID,
		ticket.SMETicketActivityID,
		ticket.TicketID,
		ticket.Version,
	)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", ticket.TicketID, err)
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_id=$1)`, ticket.TicketID).Scan(&exists); err != nil {
			return fmt.Errorf("update ticket %s: %w", ticket.TicketID, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.RequestTypes) > 0 {
		placeholders := make([]string, len(filter.RequestTypes))
		for i, rt := range filter.RequestTypes {
			args = append(args, string(rt))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("request_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterObjectID != nil {
		args = append(args, *filter.RequesterObjectID)
		clauses = append(clauses, fmt.Sprintf("requester_object_id=$%d", len(args)))
	}
	if filter.AssignedToObjectID != nil {
		args = append(args, *filter.AssignedToObjectID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_object_id=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY last_modified_on DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

// rowScanner is satisfied by both single rows and row sets.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		status      string
		requestType string
		props       []byte
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
		&ticket.ClosedOn,
		&ticket.LastModifiedByName,
		&ticket.LastModifiedByObjectID,
		&ticket.LastModifiedOn,
		&ticket.SMEConversationID,
		&ticket.SMETicketActivityID,
		&ticket.CreatedOn,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	ticket.RequestType = domain.RequestType(requestType)
	var err error
	if ticket.AdditionalProperties, err = decodeProperties(props); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func encodeProperties(props map[string]string) ([]byte, error) {
	if props == nil {
		props = map[string]string{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode additional properties: %w", err)
	}
	return raw, nil
}

func decodeProperties(raw []byte) (map[string]string, error) {
	props := map[string]string{}
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode additional properties: %w", err)
	}
	return props, nil
}
