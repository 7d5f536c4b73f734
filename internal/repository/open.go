package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/persistence"
)

// Store is the repository set for the configured driver.
type Store struct {
	Tickets TicketRepository
	History TicketHistoryRepository
	Rosters RosterRepository
	IDs     IDGenerator
	Health  interface {
		Ping(ctx context.Context) error
	}
	closer func()
}

// Close releases the underlying database handle.
func (s *Store) Close() {
	if s != nil && s.closer != nil {
		s.closer()
	}
}

// Open connects to the configured store. For postgres, migrations run first
// when enabled; the sqlite schema is always applied on open.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.Store.Driver == config.StoreDriverSQLite {
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return &Store{
			Tickets: NewSQLiteTicketRepository(db.DB),
			History: NewSQLiteTicketHistoryRepository(db.DB),
			Rosters: NewSQLiteRosterRepository(db.DB),
			IDs:     NewCounterIDGenerator(db.DB),
			Health:  db,
			closer:  db.Close,
		}, nil
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	return &Store{
		Tickets: NewTicketRepository(pg.Pool),
		History: NewTicketHistoryRepository(pg.Pool),
		Rosters: NewRosterRepository(pg.Pool),
		IDs:     NewSequenceIDGenerator(pg.Pool),
		Health:  pg,
		closer:  pg.Close,
	}, nil
}
