package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stores a new transaction.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		t.transactions[transaction.ID] = *transaction
		return nil
	})
}

// GetByID returns an active transaction.
func (r *TransactionRepository) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	var (
		row domain.Transaction
		ok  bool
	)
	r.store.read(func(t *tables) {
		row, ok = t.transactions[id]
	})
	if !ok || row.DeletedAt != nil {
		return nil, domain.ErrTransactionNotFound
	}
	return &row, nil
}

// GetByIDForUpdate returns an active transaction inside tx.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Transaction, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Update stores the transaction if its version is current.
func (r *TransactionRepository) Update(_ context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		current, ok := t.transactions[transaction.ID]
		if !ok || current.DeletedAt != nil {
			return domain.ErrTransactionNotFound
		}
		if current.Version != transaction.Version {
			return domain.ErrVersionConflict
		}
		transaction.Version++
		t.transactions[transaction.ID] = *transaction
		return nil
	})
}

// SoftDelete marks the transaction deleted if its version is current.
func (r *TransactionRepository) SoftDelete(ctx context.Context, tx usecase.Tx, transaction *domain.Transaction) error {
	return r.Update(ctx, tx, transaction)
}

// List returns active transactions matching filter, newest first.
func (r *TransactionRepository) List(_ context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	out := r.collect(func(row *domain.Transaction) bool {
		return matches(row, filter)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return page(out, filter.Limit, filter.Offset), nil
}

// ListActiveByWallet returns every active transaction on a wallet.
func (r *TransactionRepository) ListActiveByWallet(_ context.Context, walletID string) ([]*domain.Transaction, error) {
	out := r.collect(func(row *domain.Transaction) bool {
		return row.WalletID == walletID
	})
	sortByCreation(out)
	return out, nil
}

// ListActiveByEnvelope returns every active transaction linked to an envelope.
func (r *TransactionRepository) ListActiveByEnvelope(_ context.Context, envelopeID string) ([]*domain.Transaction, error) {
	out := r.collect(func(row *domain.Transaction) bool {
		return row.EnvelopeID != nil && *row.EnvelopeID == envelopeID
	})
	sortByCreation(out)
	return out, nil
}

// SumExpensesByEnvelope groups active GASTO amounts on an envelope by owner.
func (r *TransactionRepository) SumExpensesByEnvelope(_ context.Context, tx usecase.Tx, envelopeID string) ([]domain.UserSpending, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}

	sums := map[string]decimal.Decimal{}
	for _, row := range r.collect(func(row *domain.Transaction) bool {
		return row.IsEnvelopeExpense() && *row.EnvelopeID == envelopeID
	}) {
		total, ok := sums[row.OwnerID]
		if !ok {
			total = decimal.Zero
		}
		sums[row.OwnerID] = total.Add(row.Amount)
	}

	out := make([]domain.UserSpending, 0, len(sums))
	for user, amount := range sums {
		out = append(out, domain.UserSpending{UserID: user, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *TransactionRepository) collect(keep func(*domain.Transaction) bool) []*domain.Transaction {
	var out []*domain.Transaction
	r.store.read(func(t *tables) {
		for _, row := range t.transactions {
			row := row
			if row.DeletedAt == nil && keep(&row) {
				out = append(out, &row)
			}
		}
	})
	return out
}

func sortByCreation(rows []*domain.Transaction) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
}

func matches(row *domain.Transaction, f domain.TransactionFilter) bool {
	if row.OwnerID != f.OwnerID {
		return false
	}
	if f.WalletID != nil && row.WalletID != *f.WalletID {
		return false
	}
	if f.EnvelopeID != nil && !domain.StringPtrEqual(row.EnvelopeID, f.EnvelopeID) {
		return false
	}
	if f.CategoryID != nil && !domain.StringPtrEqual(row.CategoryID, f.CategoryID) {
		return false
	}
	if f.Type != nil && row.Type != *f.Type {
		return false
	}
	if f.From != nil && row.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && row.Date.After(*f.To) {
		return false
	}
	return true
}
