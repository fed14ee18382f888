package memory

import (
	"context"
	"sort"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// EnvelopeRepository implements usecase.EnvelopeRepository.
type EnvelopeRepository struct {
	store *Store
}

// NewEnvelopeRepository creates a new EnvelopeRepository.
func NewEnvelopeRepository(store *Store) *EnvelopeRepository {
	return &EnvelopeRepository{store: store}
}

// Create stores a new envelope.
func (r *EnvelopeRepository) Create(_ context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		t.envelopes[envelope.ID] = *envelope
		return nil
	})
}

// GetByID returns an active envelope.
func (r *EnvelopeRepository) GetByID(_ context.Context, id string) (*domain.Envelope, error) {
	var (
		e  domain.Envelope
		ok bool
	)
	r.store.read(func(t *tables) {
		e, ok = t.envelopes[id]
	})
	if !ok || e.DeletedAt != nil {
		return nil, domain.ErrEnvelopeNotFound
	}
	return &e, nil
}

// GetByIDForUpdate returns an active envelope inside tx.
func (r *EnvelopeRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Envelope, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByIDsForUpdate returns the active envelopes among ids, ordered by id.
func (r *EnvelopeRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Envelope, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	envelopes := make([]*domain.Envelope, 0, len(sorted))
	for _, id := range sorted {
		e, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		envelopes = append(envelopes, e)
	}
	return envelopes, nil
}

// ListByOwner lists active envelopes ordered by id.
func (r *EnvelopeRepository) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*domain.Envelope, error) {
	var out []*domain.Envelope
	r.store.read(func(t *tables) {
		for _, e := range t.envelopes {
			if e.OwnerID == ownerID && e.DeletedAt == nil {
				e := e
				out = append(out, &e)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

// Update stores the envelope if its version is current.
func (r *EnvelopeRepository) Update(_ context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		current, ok := t.envelopes[envelope.ID]
		if !ok || current.DeletedAt != nil {
			return domain.ErrEnvelopeNotFound
		}
		if current.Version != envelope.Version {
			return domain.ErrVersionConflict
		}
		envelope.Version++
		t.envelopes[envelope.ID] = *envelope
		return nil
	})
}

// SoftDelete marks the envelope deleted if its version is current.
func (r *EnvelopeRepository) SoftDelete(ctx context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	return r.Update(ctx, tx, envelope)
}

// LinkCategories adds the categories missing from the envelope's links.
func (r *EnvelopeRepository) LinkCategories(_ context.Context, tx usecase.Tx, envelopeID string, categoryIDs []string) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		linked := t.envelopeCategories[envelopeID]
		seen := make(map[string]bool, len(linked))
		for _, id := range linked {
			seen[id] = true
		}
		for _, id := range categoryIDs {
			if !seen[id] {
				seen[id] = true
				linked = append(linked, id)
			}
		}
		t.envelopeCategories[envelopeID] = linked
		return nil
	})
}

// ListCategoryIDs lists the linked category ids in link order.
func (r *EnvelopeRepository) ListCategoryIDs(_ context.Context, envelopeID string) ([]string, error) {
	var ids []string
	r.store.read(func(t *tables) {
		ids = append(ids, t.envelopeCategories[envelopeID]...)
	})
	return ids, nil
}
