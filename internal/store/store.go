// Package store provides typed data access over pgx for the profit tracking
// schema. Queries is a thin query container: it holds no state beyond the
// connection it was created with and can be rebound to a transaction with
// WithTx, so service-level code decides transactional boundaries.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// RevenueStatuses are the order statuses that generate revenue. Cancelled and
// returned orders (and their variants) never enter profit calculations.
var RevenueStatuses = []string{"Created", "Picking", "Invoiced", "Shipped", "Delivered"}

// DBTX is the subset of pgx operations Queries needs; both *pgxpool.Pool and
// pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes the application's SQL statements against a DBTX.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given connection or pool.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// mapNotFound converts pgx.ErrNoRows into the package sentinel.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
