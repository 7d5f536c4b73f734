package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spec-kit/helpdesk-bot/internal/config"
)

// SQLite wraps a local database file used when STORE_DRIVER=sqlite.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens (or creates) the database file and applies the schema.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one writer at a time keeps the counter and roster transactions free of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: busy timeout: %w", err)
	}

	s := &SQLite{DB: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("opened sqlite store", zap.String("path", cfg.Path))
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS counters (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id                  TEXT PRIMARY KEY,
			card_id                    TEXT NOT NULL DEFAULT 'default',
			status                     TEXT NOT NULL,
			title                      TEXT NOT NULL,
			description                TEXT NOT NULL,
			request_type               TEXT NOT NULL DEFAULT 'Normal',
			additional_properties      TEXT NOT NULL DEFAULT '{}',
			requester_name             TEXT NOT NULL,
			requester_object_id        TEXT NOT NULL,
			requester_conversation_id  TEXT NOT NULL DEFAULT '',
			assigned_to_name           TEXT,
			assigned_to_object_id      TEXT,
			closed_by_name             TEXT,
			closed_on                  TEXT,
			last_modified_by_name      TEXT NOT NULL,
			last_modified_by_object_id TEXT NOT NULL,
			last_modified_on           TEXT NOT NULL,
			sme_conversation_id        TEXT NOT NULL DEFAULT '',
			sme_ticket_activity_id     TEXT NOT NULL DEFAULT '',
			created_on                 TEXT NOT NULL,
			version                    INTEGER NOT NULL DEFAULT 1
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_requester ON tickets(requester_object_id);

		CREATE TABLE IF NOT EXISTS on_call_rosters (
			team_id               TEXT PRIMARY KEY,
			on_call_support_id    TEXT NOT NULL,
			experts               TEXT NOT NULL DEFAULT '[]',
			card_activity_id      TEXT NOT NULL DEFAULT '',
			conversation_id       TEXT NOT NULL DEFAULT '',
			modified_by_name      TEXT NOT NULL,
			modified_by_object_id TEXT NOT NULL,
			modified_on           TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS on_call_roster_history (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			team_id               TEXT NOT NULL,
			on_call_support_id    TEXT NOT NULL,
			experts               TEXT NOT NULL DEFAULT '[]',
			card_activity_id      TEXT NOT NULL DEFAULT '',
			conversation_id       TEXT NOT NULL DEFAULT '',
			modified_by_name      TEXT NOT NULL,
			modified_by_object_id TEXT NOT NULL,
			modified_on           TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_roster_history_team ON on_call_roster_history(team_id, id);

		CREATE TABLE IF NOT EXISTS ticket_history (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id       TEXT NOT NULL,
			transition      TEXT NOT NULL,
			from_status     TEXT NOT NULL,
			to_status       TEXT NOT NULL,
			request_type    TEXT NOT NULL,
			actor_name      TEXT NOT NULL,
			actor_object_id TEXT NOT NULL,
			created_on      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ticket_history_ticket ON ticket_history(ticket_id, id);
	`)
	if err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("sqlite not configured")
	}
	return s.DB.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}
