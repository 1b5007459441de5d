package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out pgx transactions for multi-statement work, such
// as locking a transaction row while its status changes.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a new Transactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a database transaction. Callers defer Rollback and commit
// explicitly.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
