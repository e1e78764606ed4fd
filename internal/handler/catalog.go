// Package handler contains the HTTP handlers of the catalog.
//
// Handlers parse the request, call a service and write the response. They
// hold no business rules: validation lives in service.CatalogService and
// the ownership decision in auth.Authorize.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/service"
)

// Notices shown after a redirect.
const (
	NoticeCreated       = "Item created successfully!"
	NoticeEdited        = "Item edited successfully!"
	NoticeDeleted       = "Item deleted successfully!"
	NoticeLoginToEdit   = "Please login before editing items."
	NoticeLoginToDelete = "Please login before deleting items."
	NoticeCannotEdit    = "You can't edit that item."
	NoticeCannotDelete  = "You can't delete that item."
	maxFormBytes        = 64 << 10
)

// CatalogHandler serves the browsing pages, the JSON views and the item
// forms.
type CatalogHandler struct {
	pages
	catalog *service.CatalogService
}

// NewCatalogHandler creates a CatalogHandler.
//
// DEPENDENCIES:
//   - catalog:  every read and write of categories and items
//   - sessions: persists notices added before a redirect (session.Manager)
//   - render:   turns a Page into HTML (TemplateRenderer, or a fake in tests)
func NewCatalogHandler(
	catalog *service.CatalogService,
	sessions service.SessionSaver,
	render Renderer,
	logger *slog.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		pages:   pages{sessions: sessions, render: render, logger: logger},
		catalog: catalog,
	}
}

// =========================================================================
// BROWSING
// =========================================================================

// HandleHome lists the categories and the latest items.
//
// HTTP: GET / and GET /catalog
func (h *CatalogHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	latest, err := h.catalog.Latest(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "catalog", &Page{
		Categories: categories,
		Items:      latest,
	})
}

// HandleCategory lists the items of one category.
//
// HTTP: GET /catalog/{category}
func (h *CatalogHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	cat, items, err := h.catalog.ItemsInCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "category", &Page{
		Title:      cat.Name,
		Categories: categories,
		Category:   cat,
		Items:      items,
	})
}

// HandleItem shows one item.
//
// HTTP: GET /catalog/{category}/{item}
func (h *CatalogHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Item(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "item", &Page{Title: item.Name, Item: item})
}

// =========================================================================
// JSON VIEWS
// =========================================================================
//
// Response shapes:
//
//	GET /catalog/JSON                    {"Categories": [{"id","name"}, ...]}
//	GET /catalog/{category}/JSON         {"Items": [{"id","name","description"}, ...]}
//	GET /catalog/{category}/{item}/JSON  {"id","name","description"}

type categoriesResponse struct {
	Categories []model.CategoryJSON `json:"Categories"`
}

type itemsResponse struct {
	Items []model.ItemJSON `json:"Items"`
}

// HandleCatalogJSON lists every category.
//
// HTTP: GET /catalog/JSON
func (h *CatalogHandler) HandleCatalogJSON(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	out := categoriesResponse{Categories: make([]model.CategoryJSON, 0, len(categories))}
	for _, c := range categories {
		out.Categories = append(out.Categories, c.JSON())
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCategoryJSON lists the items of one category. An empty category
// gives {"Items": []}, never null.
//
// HTTP: GET /catalog/{category}/JSON
func (h *CatalogHandler) HandleCategoryJSON(w http.ResponseWriter, r *http.Request) {
	_, items, err := h.catalog.ItemsInCategory(r.Context(), pathParam(r, "category"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := itemsResponse{Items: make([]model.ItemJSON, 0, len(items))}
	for _, it := range items {
		out.Items = append(out.Items, it.JSON())
	}
	writeJSON(w, http.StatusOK, out)
}

// HTTP: GET /catalog/{category}/{item}/JSON
func (h *CatalogHandler) HandleItemJSON(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Item(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item.JSON())
}

// =========================================================================
// WRITES
// =========================================================================
//
// Each write route runs the same guard for GET and POST:
//  1. not logged in       → notice + redirect to /login
//  2. item lookup fails   → 404 / 409 page
//  3. not the item owner  → notice + redirect to /
//
// A form that fails validation is rendered again with status 200.

func readItemForm(w http.ResponseWriter, r *http.Request) (service.ItemInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return service.ItemInput{}, apperror.ValidationFailed("form", "The form could not be read.")
	}
	return service.ItemInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		ImageURL:    r.PostForm.Get("image_url"),
		Category:    r.PostForm.Get("category"),
	}, nil
}

// renderForm shows the create/edit form, with errMsg when a submission
// was rejected.
func (h *CatalogHandler) renderForm(w http.ResponseWriter, r *http.Request, title, action string, form service.ItemInput, errMsg string) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "item_form", &Page{
		Title:      title,
		Categories: categories,
		Form:       form,
		FormAction: action,
		Error:      errMsg,
	})
}

// validationMessage returns the message of a validation error, or "" for
// any other error.
func validationMessage(err error) string {
	var appErr *apperror.AppError
	if errors.Is(err, apperror.ErrValidation) && errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// HandleNewItem shows and submits the create form.
//
// HTTP: GET, POST /catalog/new
func (h *CatalogHandler) HandleNewItem(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if auth.Authorize(sess, "") == auth.NeedsLogin {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	const title, action = "New Item", "/catalog/new"

	if r.Method != http.MethodPost {
		h.renderForm(w, r, title, action, service.ItemInput{}, "")
		return
	}

	in, err := readItemForm(w, r)
	if err == nil {
		_, err = h.catalog.CreateItem(r.Context(), sess.UserID, in)
	}
	if msg := validationMessage(err); msg != "" {
		h.renderForm(w, r, title, action, in, msg)
		return
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.redirectWithNotice(w, r, "/", NoticeCreated)
}

// guardItem runs the write guard and returns the item when the caller may
// change it. When it returns nil the response has been written.
func (h *CatalogHandler) guardItem(w http.ResponseWriter, r *http.Request, loginNotice, denyNotice string) *model.Item {
	sess := currentSession(r)
	if auth.Authorize(sess, "") == auth.NeedsLogin {
		h.redirectWithNotice(w, r, "/login", loginNotice)
		return nil
	}

	item, err := h.catalog.Item(r.Context(), pathParam(r, "category"), pathParam(r, "item"))
	if err != nil {
		h.renderError(w, r, err)
		return nil
	}

	if auth.Authorize(sess, item.UserID) == auth.NotOwner {
		h.logger.Warn("write denied",
			slog.String("item", item.ID),
			slog.String("user", sess.UserID),
		)
		h.redirectWithNotice(w, r, "/", denyNotice)
		return nil
	}
	return item
}

// HandleEditItem shows and submits the edit form.
//
// HTTP: GET, POST /catalog/{category}/{item}/edit
func (h *CatalogHandler) HandleEditItem(w http.ResponseWriter, r *http.Request) {
	item := h.guardItem(w, r, NoticeLoginToEdit, NoticeCannotEdit)
	if item == nil {
		return
	}

	title := "Edit " + item.Name
	action := r.URL.Path

	if r.Method != http.MethodPost {
		h.renderForm(w, r, title, action, service.ItemInput{
			Name:        item.Name,
			Description: item.Description,
			ImageURL:    item.ImageURL,
			Category:    item.CategoryName,
		}, "")
		return
	}

	in, err := readItemForm(w, r)
	if err == nil {
		_, err = h.catalog.EditItem(r.Context(), item, in)
	}
	if msg := validationMessage(err); msg != "" {
		h.renderForm(w, r, title, action, in, msg)
		return
	}
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.redirectWithNotice(w, r, "/", NoticeEdited)
}

// HandleDeleteItem shows the confirmation page and deletes on POST.
//
// HTTP: GET, POST /catalog/{category}/{item}/delete
func (h *CatalogHandler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item := h.guardItem(w, r, NoticeLoginToDelete, NoticeCannotDelete)
	if item == nil {
		return
	}

	if r.Method != http.MethodPost {
		h.renderPage(w, r, http.StatusOK, "delete", &Page{Title: "Delete " + item.Name, Item: item})
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), item); err != nil {
		h.renderError(w, r, err)
		return
	}

	h.redirectWithNotice(w, r, "/", NoticeDeleted)
}
