package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
)

// PreferenceRepository implements usecase.PreferenceRepository.
type PreferenceRepository struct {
	db querier
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(pool *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{db: pool}
}

// Get retrieves a user's preferences.
func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*domain.UserPreference, error) {
	query := `
		SELECT user_id, principal_currency, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`

	var p domain.UserPreference
	err := r.db.QueryRow(ctx, query, userID).Scan(&p.UserID, &p.PrincipalCurrency, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Upsert stores a user's preferences.
func (r *PreferenceRepository) Upsert(ctx context.Context, p *domain.UserPreference) error {
	query := `
		INSERT INTO user_preferences (user_id, principal_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET principal_currency = EXCLUDED.principal_currency, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query, p.UserID, p.PrincipalCurrency, p.UpdatedAt)
	return err
}
