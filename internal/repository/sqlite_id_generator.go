package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

type counterIDGenerator struct {
	db   *sql.DB
	name string
}

// NewCounterIDGenerator allocates ticket ids from a row of the SQLite counters table.
func NewCounterIDGenerator(db *sql.DB) IDGenerator {
	return &counterIDGenerator{db: db, name: "ticket"}
}

func (g *counterIDGenerator) Next(ctx context.Context) (string, error) {
	var id int64
	err := g.db.QueryRowContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value`, g.name).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("allocate ticket id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
