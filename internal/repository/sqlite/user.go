package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table view of DB.
type UserDB struct {
	db *DB
}

// Users returns the user repository backed by this database.
func (db *DB) Users() *UserDB {
	return &UserDB{db: db}
}

// Create inserts a new user, generating its ID and CreatedAt.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()

	return u.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, picture, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			user.ID,
			user.Name,
			user.Email,
			user.Picture,
			user.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
		}
		return nil
	})
}

// GetByID retrieves a user by their internal ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User

	err := u.db.conn.QueryRowContext(ctx,
		`SELECT id, name, email, picture, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email, &user.Picture, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &user, nil
}

// GetByEmail looks a user up by email, compared case-insensitively.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)

	return queryOne(ctx, u.db.conn, "user", email, scanUser,
		`SELECT id, name, email, picture, created_at
		 FROM users WHERE lower(email) = lower(?)
		 ORDER BY created_at`,
		email,
	)
}

func scanUser(rows *sql.Rows) (model.User, error) {
	var user model.User
	err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Picture, &user.CreatedAt)
	return user, err
}
