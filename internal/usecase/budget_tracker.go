package usecase

import (
	"context"

	"github.com/iho/budgetledger/internal/domain"
)

// BudgetTracker keeps an envelope's spent equal to the sum of its active
// expenses. Participant spent values come from the same pass.
type BudgetTracker struct {
	envelopeRepo    EnvelopeRepository
	transactionRepo TransactionRepository
	participantRepo ParticipantRepository
}

// NewBudgetTracker creates a new BudgetTracker.
func NewBudgetTracker(
	envelopeRepo EnvelopeRepository,
	transactionRepo TransactionRepository,
	participantRepo ParticipantRepository,
) *BudgetTracker {
	return &BudgetTracker{
		envelopeRepo:    envelopeRepo,
		transactionRepo: transactionRepo,
		participantRepo: participantRepo,
	}
}

// Recompute re-derives spent for an envelope the caller has locked and
// persists it together with any other pending envelope changes.
func (t *BudgetTracker) Recompute(ctx context.Context, tx Tx, envelope *domain.Envelope) error {
	spending, err := t.transactionRepo.SumExpensesByEnvelope(ctx, tx, envelope.ID)
	if err != nil {
		return err
	}

	ts := now()
	envelope.Spent = domain.TotalSpending(spending)
	envelope.UpdatedAt = ts

	if err := t.envelopeRepo.Update(ctx, tx, envelope); err != nil {
		return err
	}

	if t.participantRepo == nil || !envelope.Shared {
		return nil
	}

	return t.participantRepo.SyncSpent(ctx, tx, envelope.ID, spending, ts)
}

// RecomputeIDs locks the given envelopes in id order and recomputes each.
// Envelopes that no longer exist are skipped.
func (t *BudgetTracker) RecomputeIDs(ctx context.Context, tx Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	envelopes, err := t.envelopeRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return err
	}

	for _, e := range envelopes {
		if err := t.Recompute(ctx, tx, e); err != nil {
			return err
		}
	}

	return nil
}
