package memory

import (
	"context"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// AllocationRepository implements usecase.AllocationRepository.
type AllocationRepository struct {
	store *Store
}

// NewAllocationRepository creates a new AllocationRepository.
func NewAllocationRepository(store *Store) *AllocationRepository {
	return &AllocationRepository{store: store}
}

// Create appends an allocation.
func (r *AllocationRepository) Create(_ context.Context, tx usecase.Tx, a *domain.BudgetAllocation) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		t.allocations = append(t.allocations, *a)
		return nil
	})
}

// ListByEnvelope lists an envelope's allocations in insertion order.
func (r *AllocationRepository) ListByEnvelope(_ context.Context, envelopeID string) ([]*domain.BudgetAllocation, error) {
	var out []*domain.BudgetAllocation
	r.store.read(func(t *tables) {
		for _, a := range t.allocations {
			if a.EnvelopeID == envelopeID {
				a := a
				out = append(out, &a)
			}
		}
	})
	return out, nil
}
