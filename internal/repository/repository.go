// Package repository declares the persistence contracts used by the service
// layer. internal/repository/sqlite provides the implementation.
package repository

import (
	"context"

	"github.com/sakif/item-catalog/internal/model"
)

// Lookups by a non-unique column (email, name) return apperror.ErrNotFound
// when nothing matches and apperror.ErrConflict when more than one row does.

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	GetByName(ctx context.Context, name string) (*model.Category, error)
	// Ensure creates the category if no category with that name exists.
	Ensure(ctx context.Context, name string) (*model.Category, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *model.Item) error
	Update(ctx context.Context, item *model.Item) error
	Delete(ctx context.Context, id string) error
	GetByName(ctx context.Context, categoryID, name string) (*model.Item, error)
	ListByCategory(ctx context.Context, categoryID string) ([]model.Item, error)
	Latest(ctx context.Context, limit int) ([]model.Item, error)
}
