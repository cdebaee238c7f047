// Package dbx holds the minimal database/sql surface the PostgreSQL
// repositories are written against, plus pool sizing for short-lived
// processes.
package dbx

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// Pool bounds a *sql.DB. Zero fields leave the database/sql default.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// SmallPool suits one Lambda instance: it serves one invocation at a time, so
// a handful of connections covers the worker's fan-out.
func SmallPool() Pool {
	return Pool{MaxOpen: 8, MaxIdle: 2, MaxLifetime: 15 * time.Minute, MaxIdleTime: time.Minute}
}

// Apply configures db with p.
func (p Pool) Apply(db *sql.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}
