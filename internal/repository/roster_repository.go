package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

const rosterColumns = `on_call_support_id, team_id, experts, card_activity_id, conversation_id,
               modified_by_name, modified_by_object_id, modified_on`

type rosterRepository struct {
	pool *pgxpool.Pool
}

// NewRosterRepository instantiates the PostgreSQL roster repository.
func NewRosterRepository(pool *pgxpool.Pool) RosterRepository {
	return &rosterRepository{pool: pool}
}

func (r *rosterRepository) Current(ctx context.Context, teamID string) (*domain.OnCallRoster, error) {
	query := `SELECT ` + rosterColumns + ` FROM on_call_rosters WHERE team_id=$1`
	roster, err := scanRoster(r.pool.QueryRow(ctx, query, teamID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get roster %s: %w", teamID, err)
	}
	return roster, nil
}

func (r *rosterRepository) History(ctx context.Context, teamID string, limit int) ([]domain.OnCallRoster, error) {
	limit, _ = normalizePage(limit, 0)
	query := `SELECT ` + rosterColumns + ` FROM on_call_roster_history WHERE team_id=$1 ORDER BY id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, teamID, limit)
	if err != nil {
		return nil, fmt.Errorf("list roster history %s: %w", teamID, err)
	}
	defer rows.Close()

	var result []domain.OnCallRoster
	for rows.Next() {
		roster, err := scanRoster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		result = append(result, *roster)
	}
	return result, rows.Err()
}

func (r *rosterRepository) Save(ctx context.Context, roster *domain.OnCallRoster) error {
	experts, err := json.Marshal(expertsOrEmpty(roster.Experts))
	if err != nil {
		return fmt.Errorf("encode experts: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin roster save: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const archive = `
        INSERT INTO on_call_roster_history (` + rosterColumns + `)
        SELECT ` + rosterColumns + ` FROM on_call_rosters WHERE team_id=$1
        FOR UPDATE`
	if _, err := tx.Exec(ctx, archive, roster.TeamID); err != nil {
		return fmt.Errorf("archive roster %s: %w", roster.TeamID, err)
	}

	const upsert = `
        INSERT INTO on_call_rosters (` + rosterColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (team_id) DO UPDATE SET
            on_call_support_id=EXCLUDED.on_call_support_id, experts=EXCLUDED.experts,
            card_activity_id=EXCLUDED.card_activity_id, conversation_id=EXCLUDED.conversation_id,
            modified_by_name=EXCLUDED.modified_by_name, modified_by_object_id=EXCLUDED.modified_by_object_id,
            modified_on=EXCLUDED.modified_on`
	if _, err := tx.Exec(ctx, upsert,
		roster.OnCallSupportID,
		roster.TeamID,
		experts,
		roster.CardActivityID,
		roster.ConversationID,
		roster.ModifiedByName,
		roster.ModifiedByObjectID,
		roster.ModifiedOn,
	); err != nil {
		return fmt.Errorf("save roster %s: %w", roster.TeamID, err)
	}
	return tx.Commit(ctx)
}

func (r *rosterRepository) UpdateCardLinkage(ctx context.Context, teamID, conversationID, activityID string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE on_call_rosters SET conversation_id=$1, card_activity_id=$2 WHERE team_id=$3`,
		conversationID, activityID, teamID)
	if err != nil {
		return fmt.Errorf("update roster card %s: %w", teamID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRoster(row rowScanner) (*domain.OnCallRoster, error) {
	var (
		roster  domain.OnCallRoster
		experts []byte
	)
	if err := row.Scan(
		&roster.OnCallSupportID,
		&roster.TeamID,
		&experts,
		&roster.CardActivityID,
		&roster.ConversationID,
		&roster.ModifiedByName,
		&roster.ModifiedByObjectID,
		&roster.ModifiedOn,
	); err != nil {
		return nil, err
	}
	if err := decodeExperts(experts, &roster); err != nil {
		return nil, err
	}
	return &roster, nil
}

func decodeExperts(raw []byte, roster *domain.OnCallRoster) error {
	roster.Experts = []domain.Expert{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &roster.Experts); err != nil {
		return fmt.Errorf("decode experts: %w", err)
	}
	return nil
}

func expertsOrEmpty(experts []domain.Expert) []domain.Expert {
	if experts == nil {
		return []domain.Expert{}
	}
	return experts
}
