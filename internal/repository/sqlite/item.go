package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

var _ repository.ItemRepository = (*ItemDB)(nil)

// MaxLatestItems caps Latest so the home page can never pull the whole table.
const MaxLatestItems = 100

// itemColumns is the SELECT list shared by every item read. The category
// name comes from an explicit join rather than a second query per item.
const itemColumns = `i.id, i.name, i.description, i.image_url, i.category_id, c.name,
		i.user_id, i.created_at, i.updated_at`

// ItemDB is the items table view of DB.
type ItemDB struct {
	db *DB
}

// Items returns the item repository backed by this database.
func (db *DB) Items() *ItemDB {
	return &ItemDB{db: db}
}

// Create inserts a new item. The category and owner must already exist;
// the foreign keys reject anything else.
func (r *ItemDB) Create(ctx context.Context, item *model.Item) error {
	item.ID = xid.New().String()

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO items (id, name, description, image_url, category_id, user_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.Name,
			item.Description,
			item.ImageURL,
			item.CategoryID,
			item.UserID,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating item %q: %w", item.Name, err)
		}
		return nil
	})
}

// Update writes the editable fields of an item. user_id is not in the SET
// list: ownership never changes after creation.
func (r *ItemDB) Update(ctx context.Context, item *model.Item) error {
	item.UpdatedAt = time.Now()

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE items
			 SET name = ?, description = ?, image_url = ?, category_id = ?, updated_at = ?
			 WHERE id = ?`,
			item.Name,
			item.Description,
			item.ImageURL,
			item.CategoryID,
			item.UpdatedAt,
			item.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating item %s: %w", item.ID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("item", item.ID)
		}
		return nil
	})
}

// Delete removes the item with the given ID, returning apperror.ErrNotFound
// when no row was affected.
func (r *ItemDB) Delete(ctx context.Context, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("item", id)
		}
		return nil
	})
}

// GetByName returns the single item called name inside the category.
func (r *ItemDB) GetByName(ctx context.Context, categoryID, name string) (*model.Item, error) {
	return queryOne(ctx, r.db.conn, "item", name, scanItem,
		`SELECT `+itemColumns+`
		 FROM items i JOIN categories c ON c.id = i.category_id
		 WHERE i.category_id = ? AND i.name = ?
		 ORDER BY i.created_at`,
		categoryID, name,
	)
}

// ListByCategory returns the items of one category ordered by name. An
// empty category yields an empty, non-nil slice.
func (r *ItemDB) ListByCategory(ctx context.Context, categoryID string) ([]model.Item, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN categories c ON c.id = i.category_id
		 WHERE i.category_id = ?
		 ORDER BY i.name`,
		categoryID,
	)
}

// Latest returns the most recently created items, newest first.
func (r *ItemDB) Latest(ctx context.Context, limit int) ([]model.Item, error) {
	if limit <= 0 || limit > MaxLatestItems {
		limit = MaxLatestItems
	}

	return r.list(ctx,
		`SELECT `+itemColumns+`
		 FROM items i JOIN categories c ON c.id = i.category_id
		 ORDER BY i.created_at DESC, i.rowid DESC
		 LIMIT ?`,
		limit,
	)
}

func (r *ItemDB) list(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

func scanItem(rows *sql.Rows) (model.Item, error) {
	var item model.Item
	err := rows.Scan(
		&item.ID,
		&item.Name,
		&item.Description,
		&item.ImageURL,
		&item.CategoryID,
		&item.CategoryName,
		&item.UserID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}
