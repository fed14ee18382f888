package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iho/budgetledger/internal/domain"
)

// CategoryRepository implements usecase.CategoryRepository.
type CategoryRepository struct {
	store *Store
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(store *Store) *CategoryRepository {
	return &CategoryRepository{store: store}
}

// Create stores a new category.
func (r *CategoryRepository) Create(_ context.Context, category *domain.Category) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		for _, c := range t.categories {
			if c.DeletedAt == nil && c.OwnerID == category.OwnerID && strings.EqualFold(c.Name, category.Name) {
				return domain.ErrDuplicateCategory
			}
		}
		t.categories[category.ID] = *category
		return nil
	})
}

// GetByID returns an active category.
func (r *CategoryRepository) GetByID(_ context.Context, id string) (*domain.Category, error) {
	var (
		c  domain.Category
		ok bool
	)
	r.store.read(func(t *tables) {
		c, ok = t.categories[id]
	})
	if !ok || c.DeletedAt != nil {
		return nil, domain.ErrCategoryNotFound
	}
	return &c, nil
}

// FindByName returns the owner's active category with a case-insensitively
// equal name.
func (r *CategoryRepository) FindByName(_ context.Context, ownerID, name string) (*domain.Category, error) {
	var found *domain.Category
	r.store.read(func(t *tables) {
		for _, c := range t.categories {
			if c.DeletedAt == nil && c.OwnerID == ownerID && strings.EqualFold(c.Name, name) {
				c := c
				found = &c
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrCategoryNotFound
	}
	return found, nil
}

// ListByOwner lists active categories ordered by name.
func (r *CategoryRepository) ListByOwner(_ context.Context, ownerID string) ([]*domain.Category, error) {
	var out []*domain.Category
	r.store.read(func(t *tables) {
		for _, c := range t.categories {
			if c.OwnerID == ownerID && c.DeletedAt == nil {
				c := c
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update renames a category.
func (r *CategoryRepository) Update(_ context.Context, category *domain.Category) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		current, ok := t.categories[category.ID]
		if !ok || current.DeletedAt != nil {
			return domain.ErrCategoryNotFound
		}
		t.categories[category.ID] = *category
		return nil
	})
}

// SoftDelete marks the category and its subcategories deleted.
func (r *CategoryRepository) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		c, ok := t.categories[id]
		if !ok || c.DeletedAt != nil {
			return domain.ErrCategoryNotFound
		}
		c.DeletedAt = &at
		c.UpdatedAt = at
		t.categories[id] = c

		for subID, s := range t.subcategories {
			if s.CategoryID == id && s.DeletedAt == nil {
				s.DeletedAt = &at
				s.UpdatedAt = at
				t.subcategories[subID] = s
			}
		}
		return nil
	})
}

// SubcategoryRepository implements usecase.SubcategoryRepository.
type SubcategoryRepository struct {
	store *Store
}

// NewSubcategoryRepository creates a new SubcategoryRepository.
func NewSubcategoryRepository(store *Store) *SubcategoryRepository {
	return &SubcategoryRepository{store: store}
}

// Create stores a new subcategory.
func (r *SubcategoryRepository) Create(_ context.Context, sub *domain.Subcategory) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		for _, s := range t.subcategories {
			if s.DeletedAt == nil && s.CategoryID == sub.CategoryID && strings.EqualFold(s.Name, sub.Name) {
				return domain.ErrDuplicateSubcategory
			}
		}
		t.subcategories[sub.ID] = *sub
		return nil
	})
}

// GetByID returns an active subcategory.
func (r *SubcategoryRepository) GetByID(_ context.Context, id string) (*domain.Subcategory, error) {
	var (
		s  domain.Subcategory
		ok bool
	)
	r.store.read(func(t *tables) {
		s, ok = t.subcategories[id]
	})
	if !ok || s.DeletedAt != nil {
		return nil, domain.ErrSubcategoryNotFound
	}
	return &s, nil
}

// FindByName returns the category's active subcategory with a
// case-insensitively equal name.
func (r *SubcategoryRepository) FindByName(_ context.Context, categoryID, name string) (*domain.Subcategory, error) {
	var found *domain.Subcategory
	r.store.read(func(t *tables) {
		for _, s := range t.subcategories {
			if s.DeletedAt == nil && s.CategoryID == categoryID && strings.EqualFold(s.Name, name) {
				s := s
				found = &s
				return
			}
		}
	})
	if found == nil {
		return nil, domain.ErrSubcategoryNotFound
	}
	return found, nil
}

// ListByCategory lists active subcategories ordered by name.
func (r *SubcategoryRepository) ListByCategory(_ context.Context, categoryID string) ([]*domain.Subcategory, error) {
	var out []*domain.Subcategory
	r.store.read(func(t *tables) {
		for _, s := range t.subcategories {
			if s.CategoryID == categoryID && s.DeletedAt == nil {
				s := s
				out = append(out, &s)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Update renames a subcategory.
func (r *SubcategoryRepository) Update(_ context.Context, sub *domain.Subcategory) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		current, ok := t.subcategories[sub.ID]
		if !ok || current.DeletedAt != nil {
			return domain.ErrSubcategoryNotFound
		}
		t.subcategories[sub.ID] = *sub
		return nil
	})
}

// SoftDelete marks a subcategory deleted.
func (r *SubcategoryRepository) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		s, ok := t.subcategories[id]
		if !ok || s.DeletedAt != nil {
			return domain.ErrSubcategoryNotFound
		}
		s.DeletedAt = &at
		s.UpdatedAt = at
		t.subcategories[id] = s
		return nil
	})
}
