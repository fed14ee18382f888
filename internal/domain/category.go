package domain

import "time"

// Category is a user-scoped spending tag.
type Category struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Subcategory refines a category.
type Subcategory struct {
	ID         string
	CategoryID string
	OwnerID    string
	Name       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}
