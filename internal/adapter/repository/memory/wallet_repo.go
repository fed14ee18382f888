package memory

import (
	"context"
	"sort"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	store *Store
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(store *Store) *WalletRepository {
	return &WalletRepository{store: store}
}

// Create stores a new wallet.
func (r *WalletRepository) Create(_ context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		t.wallets[wallet.ID] = *wallet
		return nil
	})
}

// GetByID returns an active wallet.
func (r *WalletRepository) GetByID(_ context.Context, id string) (*domain.Wallet, error) {
	var (
		w  domain.Wallet
		ok bool
	)
	r.store.read(func(t *tables) {
		w, ok = t.wallets[id]
	})
	if !ok || w.DeletedAt != nil {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

// GetByIDForUpdate returns an active wallet inside tx.
func (r *WalletRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Wallet, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByIDsForUpdate returns the active wallets among ids, ordered by id.
func (r *WalletRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Wallet, error) {
	if err := checkTx(tx); err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	wallets := make([]*domain.Wallet, 0, len(sorted))
	for _, id := range sorted {
		w, err := r.GetByID(ctx, id)
		if err != nil {
			continue
		}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// ListByOwner lists active wallets ordered by id.
func (r *WalletRepository) ListByOwner(_ context.Context, ownerID string, limit, offset int) ([]*domain.Wallet, error) {
	var out []*domain.Wallet
	r.store.read(func(t *tables) {
		for _, w := range t.wallets {
			if w.OwnerID == ownerID && w.DeletedAt == nil {
				w := w
				out = append(out, &w)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

// Update stores the wallet if its version is current.
func (r *WalletRepository) Update(_ context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		current, ok := t.wallets[wallet.ID]
		if !ok || current.DeletedAt != nil {
			return domain.ErrWalletNotFound
		}
		if current.Version != wallet.Version {
			return domain.ErrVersionConflict
		}
		wallet.Version++
		t.wallets[wallet.ID] = *wallet
		return nil
	})
}

// SoftDelete marks the wallet deleted if its version is current.
func (r *WalletRepository) SoftDelete(ctx context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	return r.Update(ctx, tx, wallet)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
