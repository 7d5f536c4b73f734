package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

type sequenceIDGenerator struct {
	pool *pgxpool.Pool
}

// NewSequenceIDGenerator allocates ticket ids from the ticket_id_seq sequence.
func NewSequenceIDGenerator(pool *pgxpool.Pool) IDGenerator {
	return &sequenceIDGenerator{pool: pool}
}

func (g *sequenceIDGenerator) Next(ctx context.Context) (string, error) {
	var id int64
	if err := g.pool.QueryRow(ctx, `SELECT nextval('ticket_id_seq')`).Scan(&id); err != nil {
		return "", fmt.Errorf("allocate ticket id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}
