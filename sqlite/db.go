// Package sqlite persists records with composite attributes in SQLite
// through modernc.org/sqlite. Tables answer queries with SQL scopes that
// an embedded.EmbeddedScope can wrap.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// ErrConstraint indicates a write rejected by a table constraint.
var ErrConstraint = errors.New("constraint violation")

// DB is an open SQLite database.
type DB struct {
	sqlDB *sql.DB
	pin   *sql.Conn // keeps an in-memory database alive
}

// Open opens the database described by cfg and checks the connection.
func Open(cfg Config) (*DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	db := &DB{sqlDB: sqlDB}
	if strings.TrimSpace(cfg.Path) == MemoryPath {
		// The database is dropped when its last connection closes.
		pin, err := sqlDB.Conn(context.Background())
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("pin sqlite memory db: %w", err)
		}
		db.pin = pin
	}
	return db, nil
}

// Close closes the SQLite handle.
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	if d.pin != nil {
		_ = d.pin.Close()
	}
	return d.sqlDB.Close()
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.sqlDB
}

// Migrate runs statements in one transaction.
func (d *DB) Migrate(ctx context.Context, stmts ...string) error {
	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// tableColumns lists a table's columns in declaration order.
func (d *DB) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.sqlDB.QueryContext(ctx, "PRAGMA table_info("+quoteIdentifier(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			declType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	return columns, nil
}

// wrapWriteError maps constraint failures to ErrConstraint.
func wrapWriteError(table string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT,
			sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlite3lib.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
			sqlite3lib.SQLITE_CONSTRAINT_CHECK,
			sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s: %w", ErrConstraint, table, err)
		}
	}
	return fmt.Errorf("write %s: %w", table, err)
}

// quoteIdentifier quotes a SQL identifier, doubling embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
