// Package db defines the minimal database access interface shared by all
// stores. Both *pgxpool.Pool and pgx.Tx satisfy DBTX, so stores can run
// against a pool or inside a transaction without changes.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx operations stores need.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
