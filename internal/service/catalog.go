// Package service contains the business logic of the catalog.
//
// The layers stay the same as everywhere else in the app:
//
//	Handler (HTTP)  → Service (rules)  → Repository (SQL)
//
// Services accept plain Go values, never *http.Request, and return
// apperror values that the handler layer turns into status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

const (
	// LatestItemsLimit is how many recent items the home page shows.
	LatestItemsLimit = 10

	MaxItemNameLength        = 250
	MaxItemDescriptionLength = 500
	MaxImageURLLength        = 250

	MsgNameAndDescription = "Name and description please!"
	MsgChooseCategory     = "Please choose a valid category."
	MsgUnknownOwner       = "Your account no longer exists. Please login again."
)

// ItemInput is the submitted create/edit form.
type ItemInput struct {
	Name        string `validate:"required,max=250"`
	Description string `validate:"required,max=500"`
	ImageURL    string `validate:"omitempty,max=250"`
	Category    string `validate:"required"`
}

func (in *ItemInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Category = strings.TrimSpace(in.Category)
}

// CatalogService reads the catalog and applies item writes.
//
// DEPENDENCIES:
//   - categories: resolves the category named in a form
//   - items:      every item read and write
//   - users:      confirms the owner of a new item still exists
//   - validate:   go-playground/validator, driven by the ItemInput tags
//
// Ownership checks are not done here: the handler runs auth.Authorize
// against the item returned by Item before calling EditItem or DeleteItem.
type CatalogService struct {
	categories repository.CategoryRepository
	items      repository.ItemRepository
	users      repository.UserRepository
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewCatalogService wires the service to its repositories. The validator is
// built once here; it caches struct metadata across calls.
func NewCatalogService(
	categories repository.CategoryRepository,
	items repository.ItemRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		categories: categories,
		items:      items,
		users:      users,
		validate:   validator.New(),
		logger:     logger,
	}
}

// EnsureCategories creates any of the named categories that do not exist
// yet. Blank names are skipped.
func (s *CatalogService) EnsureCategories(ctx context.Context, names []string) error {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		cat, err := s.categories.Ensure(ctx, name)
		if err != nil {
			return fmt.Errorf("ensuring category %q: %w", name, err)
		}
		s.logger.Debug("category ready", slog.String("id", cat.ID), slog.String("name", cat.Name))
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// Category resolves a category by its exact name.
func (s *CatalogService) Category(ctx context.Context, name string) (*model.Category, error) {
	cat, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// ItemsInCategory returns the category and its items. An unknown category
// is NotFound; a known one without items yields an empty slice.
func (s *CatalogService) ItemsInCategory(ctx context.Context, categoryName string) (*model.Category, []model.Item, error) {
	cat, err := s.categories.GetByName(ctx, categoryName)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.items.ListByCategory(ctx, cat.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items of %q: %w", categoryName, err)
	}
	return cat, items, nil
}

// Item resolves an item by category name and item name.
func (s *CatalogService) Item(ctx context.Context, categoryName, itemName string) (*model.Item, error) {
	cat, err := s.categories.GetByName(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	return s.items.GetByName(ctx, cat.ID, itemName)
}

// Latest returns the most recently added items for the home page.
func (s *CatalogService) Latest(ctx context.Context) ([]model.Item, error) {
	items, err := s.items.Latest(ctx, LatestItemsLimit)
	if err != nil {
		return nil, fmt.Errorf("listing latest items: %w", err)
	}
	return items, nil
}

// CreateItem validates the form and stores a new item owned by ownerID.
//
// The owner comes from the session, which can outlive the users row it
// points at. An owner that no longer exists gets apperror.ErrForbidden
// instead of a foreign-key failure from the database.
func (s *CatalogService) CreateItem(ctx context.Context, ownerID string, in ItemInput) (*model.Item, error) {
	cat, err := s.checkInput(ctx, &in)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("create refused: owner no longer exists", slog.String("owner", ownerID))
			return nil, apperror.Forbidden(MsgUnknownOwner)
		}
		return nil, fmt.Errorf("looking up owner %s: %w", ownerID, err)
	}

	item := &model.Item{
		Name:         in.Name,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		UserID:       ownerID,
	}
	if err := s.items.Create(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.String("name", item.Name),
		slog.String("category", cat.Name),
		slog.String("owner", ownerID),
	)
	return item, nil
}

// EditItem applies the form to an existing item. The owner is left as is.
// On a validation failure item is not modified.
func (s *CatalogService) EditItem(ctx context.Context, item *model.Item, in ItemInput) (*model.Item, error) {
	cat, err := s.checkInput(ctx, &in)
	if err != nil {
		return nil, err
	}

	updated := *item
	updated.Name = in.Name
	updated.Description = in.Description
	updated.ImageURL = in.ImageURL
	updated.CategoryID = cat.ID
	updated.CategoryName = cat.Name

	if err := s.items.Update(ctx, &updated); err != nil {
		s.logger.Error("failed to update item",
			slog.String("id", item.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating item: %w", err)
	}

	s.logger.Info("item updated", slog.String("id", updated.ID), slog.String("name", updated.Name))
	return &updated, nil
}

// DeleteItem removes an item the caller has already been authorized for.
func (s *CatalogService) DeleteItem(ctx context.Context, item *model.Item) error {
	if err := s.items.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted", slog.String("id", item.ID), slog.String("name", item.Name))
	return nil
}

// checkInput trims and validates the form, then resolves its category.
// Every failure is a validation error so the form can be shown again.
func (s *CatalogService) checkInput(ctx context.Context, in *ItemInput) (*model.Category, error) {
	in.trim()

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return nil, fmt.Errorf("validating item: %w", err)
		}
		return nil, validationMessage(verrs[0])
	}

	cat, err := s.categories.GetByName(ctx, in.Category)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("category", MsgChooseCategory)
		}
		return nil, fmt.Errorf("resolving category %q: %w", in.Category, err)
	}
	return cat, nil
}

func validationMessage(fe validator.FieldError) *apperror.AppError {
	field := strings.ToLower(fe.Field())
	if field == "imageurl" {
		field = "image_url"
	}

	switch {
	case fe.Tag() == "required" && field == "category":
		return apperror.ValidationFailed(field, MsgChooseCategory)
	case fe.Tag() == "required":
		return apperror.ValidationFailed(field, MsgNameAndDescription)
	case fe.Tag() == "max":
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %s characters or less", field, fe.Param()))
	default:
		return apperror.ValidationFailed(field, fmt.Sprintf("%s is invalid", field))
	}
}
