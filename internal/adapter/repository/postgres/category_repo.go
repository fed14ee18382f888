package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
)

// CategoryRepository implements usecase.CategoryRepository.
type CategoryRepository struct {
	db querier
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: pool}
}

// Create inserts a category. Names are unique per owner, ignoring case.
func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		category.ID,
		category.OwnerID,
		category.Name,
		category.CreatedAt,
		category.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateCategory
	}

	return err
}

// GetByID retrieves an active category.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanCategory(r.db.QueryRow(ctx, query, id))
}

// FindByName matches case-insensitively within the owner's catalog.
func (r *CategoryRepository) FindByName(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories
		WHERE owner_id = $1 AND lower(name) = lower($2) AND deleted_at IS NULL
	`
	return scanCategory(r.db.QueryRow(ctx, query, ownerID, name))
}

// ListByOwner lists active categories ordered by name.
func (r *CategoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Category, error) {
	query := `
		SELECT id, owner_id, name, created_at, updated_at
		FROM categories
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// Update renames a category.
func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, category.ID, category.Name, category.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateCategory
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

// SoftDelete marks the category and its subcategories deleted in one statement.
func (r *CategoryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `
		WITH deleted AS (
			UPDATE categories
			SET deleted_at = $2, updated_at = $2
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING id
		), cascaded AS (
			UPDATE subcategories
			SET deleted_at = $2, updated_at = $2
			WHERE category_id IN (SELECT id FROM deleted) AND deleted_at IS NULL
		)
		SELECT count(*) FROM deleted
	`

	var n int64
	if err := r.db.QueryRow(ctx, query, id, at).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SubcategoryRepository implements usecase.SubcategoryRepository.
type SubcategoryRepository struct {
	db querier
}

// NewSubcategoryRepository creates a new SubcategoryRepository.
func NewSubcategoryRepository(pool *pgxpool.Pool) *SubcategoryRepository {
	return &SubcategoryRepository{db: pool}
}

// Create inserts a subcategory. Names are unique per category, ignoring case.
func (r *SubcategoryRepository) Create(ctx context.Context, sub *domain.Subcategory) error {
	query := `
		INSERT INTO subcategories (id, category_id, owner_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		sub.ID,
		sub.CategoryID,
		sub.OwnerID,
		sub.Name,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateSubcategory
	}

	return err
}

// GetByID retrieves an active subcategory.
func (r *SubcategoryRepository) GetByID(ctx context.Context, id string) (*domain.Subcategory, error) {
	query := `
		SELECT id, category_id, owner_id, name, created_at, updated_at
		FROM subcategories
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanSubcategory(r.db.QueryRow(ctx, query, id))
}

// FindByName matches case-insensitively within the category.
func (r *SubcategoryRepository) FindByName(ctx context.Context, categoryID, name string) (*domain.Subcategory, error) {
	query := `
		SELECT id, category_id, owner_id, name, created_at, updated_at
		FROM subcategories
		WHERE category_id = $1 AND lower(name) = lower($2) AND deleted_at IS NULL
	`
	return scanSubcategory(r.db.QueryRow(ctx, query, categoryID, name))
}

// ListByCategory lists active subcategories ordered by name.
func (r *SubcategoryRepository) ListByCategory(ctx context.Context, categoryID string) ([]*domain.Subcategory, error) {
	query := `
		SELECT id, category_id, owner_id, name, created_at, updated_at
		FROM subcategories
		WHERE category_id = $1 AND deleted_at IS NULL
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*domain.Subcategory
	for rows.Next() {
		var s domain.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.OwnerID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}

	return subs, rows.Err()
}

// Update renames a subcategory.
func (r *SubcategoryRepository) Update(ctx context.Context, sub *domain.Subcategory) error {
	query := `
		UPDATE subcategories
		SET name = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, sub.ID, sub.Name, sub.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateSubcategory
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubcategoryNotFound
	}

	return nil
}

// SoftDelete marks a subcategory deleted.
func (r *SubcategoryRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE subcategories
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubcategoryNotFound
	}

	return nil
}

func scanSubcategory(row pgx.Row) (*domain.Subcategory, error) {
	var s domain.Subcategory
	err := row.Scan(&s.ID, &s.CategoryID, &s.OwnerID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubcategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
