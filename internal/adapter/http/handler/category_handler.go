package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
)

// CategoryService defines the behavior needed by CategoryHandler.
type CategoryService interface {
	CreateCategory(ctx context.Context, ownerID, name string) (*domain.Category, error)
	GetCategory(ctx context.Context, ownerID, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, ownerID string) ([]*domain.Category, error)
	RenameCategory(ctx context.Context, ownerID, id, name string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, ownerID, id string) error
	CreateSubcategory(ctx context.Context, ownerID, categoryID, name string) (*domain.Subcategory, error)
	ListSubcategories(ctx context.Context, ownerID, categoryID string) ([]*domain.Subcategory, error)
	RenameSubcategory(ctx context.Context, ownerID, id, name string) (*domain.Subcategory, error)
	DeleteSubcategory(ctx context.Context, ownerID, id string) error
}

// CategoryHandler handles the category catalog.
type CategoryHandler struct {
	categoryUC CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryUC CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryUC: categoryUC}
}

// Create creates a category.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.categoryUC.CreateCategory(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CategoryFromDomain(category))
}

// Get retrieves a category.
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	category, err := h.categoryUC.GetCategory(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoryFromDomain(category))
}

// List lists the caller's categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	categories, err := h.categoryUC.ListCategories(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoriesFromDomain(categories))
}

// Rename renames a category.
func (h *CategoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.categoryUC.RenameCategory(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoryFromDomain(category))
}

// Delete soft deletes a category and its subcategories.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.categoryUC.DeleteCategory(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}

// CreateSubcategory creates a subcategory under the category in the path.
func (h *CategoryHandler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.categoryUC.CreateSubcategory(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubcategoryFromDomain(sub))
}

// ListSubcategories lists the category's subcategories.
func (h *CategoryHandler) ListSubcategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	subs, err := h.categoryUC.ListSubcategories(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SubcategoriesFromDomain(subs))
}

// RenameSubcategory renames a subcategory.
func (h *CategoryHandler) RenameSubcategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.categoryUC.RenameSubcategory(r.Context(), userID, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SubcategoryFromDomain(sub))
}

// DeleteSubcategory soft deletes a subcategory.
func (h *CategoryHandler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.categoryUC.DeleteSubcategory(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}
