package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

type sqliteRosterRepository struct {
	db *sql.DB
}

// NewSQLiteRosterRepository instantiates the SQLite roster repository.
func NewSQLiteRosterRepository(db *sql.DB) RosterRepository {
	return &sqliteRosterRepository{db: db}
}

func (r *sqliteRosterRepository) Current(ctx context.Context, teamID string) (*domain.OnCallRoster, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rosterColumns+` FROM on_call_rosters WHERE team_id = ?`, teamID)
	roster, err := scanSQLiteRoster(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roster store: current %s: %w", teamID, err)
	}
	return roster, nil
}

func (r *sqliteRosterRepository) History(ctx context.Context, teamID string, limit int) ([]domain.OnCallRoster, error) {
	limit, _ = normalizePage(limit, 0)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+rosterColumns+` FROM on_call_roster_history WHERE team_id = ? ORDER BY id DESC LIMIT ?`,
		teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("roster store: history %s: %w", teamID, err)
	}
	defer rows.Close()

	var result []domain.OnCallRoster
	for rows.Next() {
		roster, err := scanSQLiteRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("roster store: history scan: %w", err)
		}
		result = append(result, *roster)
	}
	return result, rows.Err()
}

func (r *sqliteRosterRepository) Save(ctx context.Context, roster *domain.OnCallRoster) error {
	experts, err := json.Marshal(expertsOrEmpty(roster.Experts))
	if err != nil {
		return fmt.Errorf("encode experts: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("roster store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO on_call_roster_history (`+rosterColumns+`)
		SELECT `+rosterColumns+` FROM on_call_rosters WHERE team_id = ?`, roster.TeamID); err != nil {
		return fmt.Errorf("roster store: archive %s: %w", roster.TeamID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO on_call_rosters (`+rosterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id) DO UPDATE SET
			on_call_support_id=excluded.on_call_support_id, experts=excluded.experts,
			card_activity_id=excluded.card_activity_id, conversation_id=excluded.conversation_id,
			modified_by_name=excluded.modified_by_name, modified_by_object_id=excluded.modified_by_object_id,
			modified_on=excluded.modified_on`,
		roster.OnCallSupportID,
		roster.TeamID,
		string(experts),
		roster.CardActivityID,
		roster.ConversationID,
		roster.ModifiedByName,
		roster.ModifiedByObjectID,
		formatTime(roster.ModifiedOn),
	); err != nil {
		return fmt.Errorf("roster store: save %s: %w", roster.TeamID, err)
	}
	return tx.Commit()
}

func (r *sqliteRosterRepository) UpdateCardLinkage(ctx context.Context, teamID, conversationID, activityID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE on_call_rosters SET conversation_id = ?, card_activity_id = ? WHERE team_id = ?`,
		conversationID, activityID, teamID)
	if err != nil {
		return fmt.Errorf("roster store: card linkage %s: %w", teamID, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSQLiteRoster(row rowScanner) (*domain.OnCallRoster, error) {
	var (
		roster              domain.OnCallRoster
		experts, modifiedOn string
	)
	if err := row.Scan(
		&roster.OnCallSupportID,
		&roster.TeamID,
		&experts,
		&roster.CardActivityID,
		&roster.ConversationID,
		&roster.ModifiedByName,
		&roster.ModifiedByObjectID,
		&modifiedOn,
	); err != nil {
		return nil, err
	}
	if err := decodeExperts([]byte(experts), &roster); err != nil {
		return nil, err
	}
	var err error
	if roster.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return nil, err
	}
	return &roster, nil
}
