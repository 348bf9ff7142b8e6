// Package schema creates the target database schema and tracks its version.
package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// LatestVersion is the schema version this build provisions.
const LatestVersion = 1

// versionKey is the global_property key the bot reads at runtime to decide
// whether its schema is current.
const versionKey = "db_version"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ensure creates the full schema if the stored version is 0 or the version
// table is missing, then records LatestVersion. If the stored version is
// already current it does nothing.
//
// Creation is not wrapped in a transaction: a failure mid-way leaves partial
// schema with the version still unset, which the next run detects as version
// 0 and retries. Every statement uses plain CREATE, so a retry over partial
// schema fails on the first already-created object; dropping the database is
// the recovery path for that state.
func Ensure(ctx context.Context, db *sql.DB) error {
	version, err := Version(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	return apply(ctx, db, version, func(v int) error {
		return SetVersion(ctx, db, v)
	})
}

func apply(ctx context.Context, ex execer, version int, setVersion func(int) error) error {
	if version >= LatestVersion {
		return nil
	}
	if err := create(ctx, ex); err != nil {
		return err
	}
	if err := setVersion(LatestVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Version returns the stored schema version. A missing global_property
// table or a missing key both mean the schema was never provisioned and
// read as version 0.
func Version(ctx context.Context, db *sql.DB) (int, error) {
	var raw []byte
	err := db.QueryRowContext(ctx,
		`SELECT value FROM global_property WHERE key = $1`, versionKey,
	).Scan(&raw)
	if err == sql.ErrNoRows || isUndefinedTable(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query version: %w", err)
	}
	return decodeVersion(raw)
}

// SetVersion stores the schema version under global_property['db_version'].
func SetVersion(ctx context.Context, db *sql.DB, version int) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO global_property (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		versionKey, encodeVersion(version),
	)
	if err != nil {
		return fmt.Errorf("set version %d: %w", version, err)
	}
	return nil
}

func create(ctx context.Context, ex execer) error {
	for _, stmt := range tables {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, stmt := range functions {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create function: %w", err)
		}
	}
	for _, stmt := range triggers {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

func decodeVersion(raw []byte) (int, error) {
	var version int
	if err := json.Unmarshal(raw, &version); err != nil {
		return 0, fmt.Errorf("decode version %q: %w", raw, err)
	}
	return version, nil
}

func encodeVersion(version int) string {
	raw, _ := json.Marshal(version)
	return string(raw)
}

// isUndefinedTable reports whether err is Postgres SQLSTATE 42P01.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
