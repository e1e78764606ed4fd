package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

var _ repository.CategoryRepository = (*CategoryDB)(nil)

// CategoryDB is the categories table view of DB.
type CategoryDB struct {
	db *DB
}

// Categories returns the category repository backed by this database.
func (db *DB) Categories() *CategoryDB {
	return &CategoryDB{db: db}
}

// List returns every category ordered by name.
func (c *CategoryDB) List(ctx context.Context) ([]model.Category, error) {
	rows, err := c.db.conn.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}

	return categories, nil
}

// GetByName returns the single category with this exact name.
func (c *CategoryDB) GetByName(ctx context.Context, name string) (*model.Category, error) {
	return queryOne(ctx, c.db.conn, "category", name, scanCategory,
		`SELECT id, name FROM categories WHERE name = ? ORDER BY id`,
		name,
	)
}

// Ensure returns the category named name, creating it first if needed.
// The lookup and the insert share one transaction.
func (c *CategoryDB) Ensure(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "category name is required")
	}

	var cat *model.Category
	err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := queryOne(ctx, tx, "category", name, scanCategory,
			`SELECT id, name FROM categories WHERE name = ? ORDER BY id`,
			name,
		)
		if err == nil {
			cat = existing
			return nil
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return err
		}

		created := model.Category{ID: xid.New().String(), Name: name}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name) VALUES (?, ?)`,
			created.ID, created.Name,
		); err != nil {
			return fmt.Errorf("sqlite: inserting category %q: %w", name, err)
		}
		cat = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cat, nil
}

func scanCategory(rows *sql.Rows) (model.Category, error) {
	var cat model.Category
	err := rows.Scan(&cat.ID, &cat.Name)
	return cat, err
}
