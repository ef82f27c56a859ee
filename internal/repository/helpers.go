// internal/repository/helpers.go
package repository

import (
	"context"
	"database/sql"
	"time"

	"agency-crm/internal/common/database"
)

func withinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	return database.WithinTx(ctx, db, fn)
}

// sqlExecutor is satisfied by *sql.DB and *sql.Tx; conditional updates run
// against either.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}
