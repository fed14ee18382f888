package usecase

import (
	"context"
	"errors"

	"github.com/iho/budgetledger/internal/domain"
)

// CategoryUseCase handles the user-scoped category catalog.
type CategoryUseCase struct {
	categoryRepo    CategoryRepository
	subcategoryRepo SubcategoryRepository
	idGen           IDGenerator
}

// NewCategoryUseCase creates a new CategoryUseCase.
func NewCategoryUseCase(categoryRepo CategoryRepository, subcategoryRepo SubcategoryRepository, idGen IDGenerator) *CategoryUseCase {
	return &CategoryUseCase{
		categoryRepo:    categoryRepo,
		subcategoryRepo: subcategoryRepo,
		idGen:           idGen,
	}
}

// CreateCategory creates a category with a name unique in the owner's catalog.
func (uc *CategoryUseCase) CreateCategory(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureCategoryNameFree(ctx, ownerID, name, ""); err != nil {
		return nil, err
	}

	ts := now()
	category := &domain.Category{
		ID:        uc.idGen.Generate(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	if err := uc.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// GetCategory returns one of the caller's categories.
func (uc *CategoryUseCase) GetCategory(ctx context.Context, ownerID, id string) (*domain.Category, error) {
	category, err := uc.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.OwnerID != ownerID {
		return nil, domain.ErrCategoryAccessDenied
	}
	return category, nil
}

// ListCategories lists the caller's categories.
func (uc *CategoryUseCase) ListCategories(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return uc.categoryRepo.ListByOwner(ctx, ownerID)
}

// RenameCategory changes a category's name.
func (uc *CategoryUseCase) RenameCategory(ctx context.Context, ownerID, id, name string) (*domain.Category, error) {
	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}

	category, err := uc.GetCategory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureCategoryNameFree(ctx, ownerID, name, id); err != nil {
		return nil, err
	}

	category.Name = name
	category.UpdatedAt = now()

	if err := uc.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// DeleteCategory soft-deletes a category and its subcategories.
func (uc *CategoryUseCase) DeleteCategory(ctx context.Context, ownerID, id string) error {
	if _, err := uc.GetCategory(ctx, ownerID, id); err != nil {
		return err
	}
	return uc.categoryRepo.SoftDelete(ctx, id, now())
}

// CreateSubcategory creates a subcategory unique within its category.
func (uc *CategoryUseCase) CreateSubcategory(ctx context.Context, ownerID, categoryID, name string) (*domain.Subcategory, error) {
	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}

	if _, err := uc.GetCategory(ctx, ownerID, categoryID); err != nil {
		return nil, err
	}

	if err := uc.ensureSubcategoryNameFree(ctx, categoryID, name, ""); err != nil {
		return nil, err
	}

	ts := now()
	sub := &domain.Subcategory{
		ID:         uc.idGen.Generate(),
		CategoryID: categoryID,
		OwnerID:    ownerID,
		Name:       name,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}

	if err := uc.subcategoryRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// ListSubcategories lists the subcategories of one of the caller's categories.
func (uc *CategoryUseCase) ListSubcategories(ctx context.Context, ownerID, categoryID string) ([]*domain.Subcategory, error) {
	if _, err := uc.GetCategory(ctx, ownerID, categoryID); err != nil {
		return nil, err
	}
	return uc.subcategoryRepo.ListByCategory(ctx, categoryID)
}

// RenameSubcategory changes a subcategory's name.
func (uc *CategoryUseCase) RenameSubcategory(ctx context.Context, ownerID, id, name string) (*domain.Subcategory, error) {
	name, err := domain.ValidateName(name)
	if err != nil {
		return nil, err
	}

	sub, err := uc.getSubcategory(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureSubcategoryNameFree(ctx, sub.CategoryID, name, id); err != nil {
		return nil, err
	}

	sub.Name = name
	sub.UpdatedAt = now()

	if err := uc.subcategoryRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// DeleteSubcategory soft-deletes a subcategory.
func (uc *CategoryUseCase) DeleteSubcategory(ctx context.Context, ownerID, id string) error {
	if _, err := uc.getSubcategory(ctx, ownerID, id); err != nil {
		return err
	}
	return uc.subcategoryRepo.SoftDelete(ctx, id, now())
}

func (uc *CategoryUseCase) getSubcategory(ctx context.Context, ownerID, id string) (*domain.Subcategory, error) {
	sub, err := uc.subcategoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != ownerID {
		return nil, domain.ErrCategoryAccessDenied
	}
	return sub, nil
}

func (uc *CategoryUseCase) ensureCategoryNameFree(ctx context.Context, ownerID, name, selfID string) error {
	existing, err := uc.categoryRepo.FindByName(ctx, ownerID, name)
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return domain.ErrDuplicateCategory
	}
	return nil
}

func (uc *CategoryUseCase) ensureSubcategoryNameFree(ctx context.Context, categoryID, name, selfID string) error {
	existing, err := uc.subcategoryRepo.FindByName(ctx, categoryID, name)
	switch {
	case errors.Is(err, domain.ErrSubcategoryNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return domain.ErrDuplicateSubcategory
	}
	return nil
}
