// Package sqlite implements the repository interfaces and the SQL session
// store on top of SQLite.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. The driver registers itself with database/sql under the
// name "sqlite".
//
// CONNECTION SCOPE:
// *sql.DB is a pool. Every repository call borrows a connection for the
// duration of that call only, and every write runs inside its own
// transaction (see withTx). Nothing holds a connection across requests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/sakif/item-catalog/internal/apperror"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// The per-table repositories are views over the same pool: Users(),
// Categories(), Items() and Sessions().
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/catalog.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database, used by tests
//
// An in-memory database lives inside a single connection, so the pool is
// capped at one connection for ":memory:".
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		// Pragmas in the DSN apply to every pooled connection, not just the
		// first one.
		dsn = dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			picture    TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Category names are unique by convention only; GetByName reports
	// duplicates as ambiguous instead of relying on a constraint.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
	`)
	if err != nil {
		return fmt.Errorf("creating categories table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL REFERENCES categories(id),
			user_id     TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_items_category_name ON items(category_id, name);
		CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating items table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating sessions table: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction and commits it if fn returns nil.
// fn must use tx, never db.conn: with ":memory:" the pool has a single
// connection and tx already holds it.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryOne runs a lookup by a non-unique column. It reads at most two rows:
// zero rows is NotFound, two is Ambiguous.
//
// WHY LIMIT 2?
// Item names and user emails carry no UNIQUE constraint. One row answers the
// lookup; a second row is enough to know the name is ambiguous, so the
// query never needs to read further than that.
//
// The scan function turns the current row into a T. Each repository passes
// its own (scanUser, scanCategory, scanItem).
func queryOne[T any](
	ctx context.Context,
	q queryer,
	resource, key string,
	scan func(*sql.Rows) (T, error),
	query string,
	args ...any,
) (*T, error) {
	rows, err := q.QueryContext(ctx, query+" LIMIT 2", args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: looking up %s %q: %w", resource, key, err)
	}
	defer rows.Close()

	var found []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", resource, err)
		}
		found = append(found, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s rows: %w", resource, err)
	}

	switch len(found) {
	case 0:
		return nil, apperror.NotFound(resource, key)
	case 1:
		return &found[0], nil
	default:
		return nil, apperror.Ambiguous(resource, key)
	}
}
