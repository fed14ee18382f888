package memory

import (
	"context"

	"github.com/iho/budgetledger/internal/domain"
)

// PreferenceRepository implements usecase.PreferenceRepository.
type PreferenceRepository struct {
	store *Store
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(store *Store) *PreferenceRepository {
	return &PreferenceRepository{store: store}
}

// Get returns a user's preferences.
func (r *PreferenceRepository) Get(_ context.Context, userID string) (*domain.UserPreference, error) {
	var (
		p  domain.UserPreference
		ok bool
	)
	r.store.read(func(t *tables) {
		p, ok = t.preferences[userID]
	})
	if !ok {
		return nil, domain.ErrPreferenceNotFound
	}
	return &p, nil
}

// Upsert stores a user's preferences.
func (r *PreferenceRepository) Upsert(_ context.Context, p *domain.UserPreference) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		t.preferences[p.UserID] = *p
		return nil
	})
}
