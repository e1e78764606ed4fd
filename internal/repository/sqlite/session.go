package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/item-catalog/internal/session"
)

var _ session.Store = (*SessionDB)(nil)

// SessionDB stores sessions as JSON blobs in the sessions table.
type SessionDB struct {
	db *DB
}

// Sessions returns the session store backed by this database. It is the
// default session.Store; SESSION_BACKEND=redis swaps in session.RedisStore.
func (db *DB) Sessions() *SessionDB {
	return &SessionDB{db: db}
}

// Get returns the session unless it is missing or expired. Expired rows are
// deleted on the way out.
func (s *SessionDB) Get(ctx context.Context, id string) (*session.Session, bool, error) {
	var (
		data      string
		expiresAt time.Time
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT data, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	if !expiresAt.After(time.Now()) {
		if err := s.Delete(ctx, id); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	sess, err := session.Decode(id, []byte(data))
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Save writes the session and pushes its expiry ttl into the future.
//
// INSERT ... ON CONFLICT DO UPDATE:
// The first save of a session inserts the row; every later save hits the
// primary key conflict and updates data and expires_at in place. Unlike
// INSERT OR REPLACE, the row is never deleted and re-inserted.
func (s *SessionDB) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	data, err := session.Encode(sess)
	if err != nil {
		return err
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
			sess.ID, string(data), time.Now().Add(ttl),
		)
		if err != nil {
			return fmt.Errorf("sqlite: saving session %s: %w", sess.ID, err)
		}
		return nil
	})
}

// Delete removes the session. Deleting a missing session is not an error.
func (s *SessionDB) Delete(ctx context.Context, id string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
		}
		return nil
	})
}
