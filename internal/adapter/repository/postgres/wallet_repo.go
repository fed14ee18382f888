package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

const walletColumns = `id, name, type, currency_id, real_balance, projected_balance,
	interest_rate, shared, owner_id, version, created_at, updated_at`

// WalletRepository implements usecase.WalletRepository.
type WalletRepository struct {
	db querier
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: pool}
}

// Create inserts a new wallet.
func (r *WalletRepository) Create(ctx context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, name, type, currency_id, real_balance, projected_balance,
			interest_rate, shared, owner_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := txQuerier(tx).Exec(ctx, query,
		wallet.ID,
		wallet.Name,
		string(wallet.Type),
		wallet.CurrencyID,
		decimalToNumeric(wallet.RealBalance),
		decimalToNumeric(wallet.ProjectedBalance),
		nullableNumeric(wallet.InterestRate),
		wallet.Shared,
		wallet.OwnerID,
		wallet.Version,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)

	return err
}

// GetByID retrieves an active wallet.
func (r *WalletRepository) GetByID(ctx context.Context, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 AND deleted_at IS NULL`
	return scanWallet(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an active wallet and locks its row.
func (r *WalletRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return scanWallet(txQuerier(tx).QueryRow(ctx, query, id))
}

// GetByIDsForUpdate locks the active wallets among ids in id order.
func (r *WalletRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`

	rows, err := txQuerier(tx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return collectWallets(rows)
}

// ListByOwner lists active wallets ordered by id. A zero limit returns all.
func (r *WalletRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY id
		LIMIT NULLIF($2, 0) OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectWallets(rows)
}

// Update writes the wallet if its version is current and bumps the version.
func (r *WalletRepository) Update(ctx context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	query := `
		UPDATE wallets
		SET name = $3, real_balance = $4, projected_balance = $5, interest_rate = $6,
			shared = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query,
		wallet.ID,
		wallet.Version,
		wallet.Name,
		decimalToNumeric(wallet.RealBalance),
		decimalToNumeric(wallet.ProjectedBalance),
		nullableNumeric(wallet.InterestRate),
		wallet.Shared,
		wallet.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "wallets", wallet.ID, domain.ErrWalletNotFound)
	}

	wallet.Version++
	return nil
}

// SoftDelete marks the wallet deleted if its version is current.
func (r *WalletRepository) SoftDelete(ctx context.Context, tx usecase.Tx, wallet *domain.Wallet) error {
	query := `
		UPDATE wallets
		SET deleted_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	if wallet.DeletedAt == nil {
		now := time.Now().UTC()
		wallet.DeletedAt = &now
	}

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query, wallet.ID, wallet.Version, *wallet.DeletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "wallets", wallet.ID, domain.ErrWalletNotFound)
	}

	wallet.Version++
	return nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w, err := scanWalletRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	return w, err
}

func scanWalletRow(row pgx.Row) (*domain.Wallet, error) {
	var (
		w                      domain.Wallet
		walletType             string
		realBalance, projected pgtype.Numeric
		interestRate           pgtype.Numeric
	)

	err := row.Scan(
		&w.ID,
		&w.Name,
		&walletType,
		&w.CurrencyID,
		&realBalance,
		&projected,
		&interestRate,
		&w.Shared,
		&w.OwnerID,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Type = domain.WalletType(walletType)
	w.RealBalance = numericToDecimal(realBalance)
	w.ProjectedBalance = numericToDecimal(projected)
	w.InterestRate = numericToDecimalPtr(interestRate)

	return &w, nil
}

func collectWallets(rows pgx.Rows) ([]*domain.Wallet, error) {
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		w, err := scanWalletRow(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}

	return wallets, rows.Err()
}
