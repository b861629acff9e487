package driver

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the query surface shared by the pool and an open transaction.
// Repository methods accept an optional tx and route through WithTx so the
// same SQL runs inside or outside a transaction boundary.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WithTx returns tx when one is open, otherwise the pool.
func WithTx(conn PostgresPool, tx pgx.Tx) Querier {
	if tx != nil {
		return tx
	}
	return conn
}
