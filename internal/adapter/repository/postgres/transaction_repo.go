package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

const transactionColumns = `id, amount, currency_id, wallet_id, type, direction, owner_id,
	description, date, envelope_id, category_id, subcategory_id, destination_wallet_id,
	card_payment, conversion, auto_increase, version, created_at, updated_at`

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db querier
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: pool}
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	cardPayment, conversion, autoIncrease, err := encodeDetails(t)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, amount, currency_id, wallet_id, type, direction, owner_id,
			description, date, envelope_id, category_id, subcategory_id, destination_wallet_id,
			card_payment, conversion, auto_increase, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = txQuerier(tx).Exec(ctx, query,
		t.ID,
		decimalToNumeric(t.Amount),
		t.CurrencyID,
		t.WalletID,
		string(t.Type),
		string(t.Direction),
		t.OwnerID,
		t.Description,
		t.Date,
		t.EnvelopeID,
		t.CategoryID,
		t.SubcategoryID,
		t.DestinationWalletID,
		cardPayment,
		conversion,
		autoIncrease,
		t.Version,
		t.CreatedAt,
		t.UpdatedAt,
	)

	return err
}

// GetByID retrieves an active transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND deleted_at IS NULL`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an active transaction and locks its row.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return scanTransaction(txQuerier(tx).QueryRow(ctx, query, id))
}

// Update writes the mutable fields if the version is current and bumps it.
func (r *TransactionRepository) Update(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	cardPayment, conversion, autoIncrease, err := encodeDetails(t)
	if err != nil {
		return err
	}

	query := `
		UPDATE transactions
		SET amount = $3, description = $4, date = $5, envelope_id = $6, category_id = $7,
			subcategory_id = $8, destination_wallet_id = $9, card_payment = $10,
			conversion = $11, auto_increase = $12, updated_at = $13, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query,
		t.ID,
		t.Version,
		decimalToNumeric(t.Amount),
		t.Description,
		t.Date,
		t.EnvelopeID,
		t.CategoryID,
		t.SubcategoryID,
		t.DestinationWalletID,
		cardPayment,
		conversion,
		autoIncrease,
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "transactions", t.ID, domain.ErrTransactionNotFound)
	}

	t.Version++
	return nil
}

// SoftDelete marks the transaction deleted if its version is current.
func (r *TransactionRepository) SoftDelete(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET deleted_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	if t.DeletedAt == nil {
		now := time.Now().UTC()
		t.DeletedAt = &now
	}

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query, t.ID, t.Version, *t.DeletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "transactions", t.ID, domain.ErrTransactionNotFound)
	}

	t.Version++
	return nil
}

// List returns active transactions matching filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	conds := []string{"owner_id = $1", "deleted_at IS NULL"}
	args := []any{filter.OwnerID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WalletID != nil {
		add("wallet_id = $%d", *filter.WalletID)
	}
	if filter.EnvelopeID != nil {
		add("envelope_id = $%d", *filter.EnvelopeID)
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.Type != nil {
		add("type = $%d", string(*filter.Type))
	}
	if filter.From != nil {
		add("date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("date <= $%d", *filter.To)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM transactions
		WHERE %s
		ORDER BY date DESC, id DESC
		LIMIT NULLIF($%d, 0) OFFSET $%d
	`, transactionColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// ListActiveByWallet returns every active transaction on a wallet.
func (r *TransactionRepository) ListActiveByWallet(ctx context.Context, walletID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE wallet_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, walletID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// ListActiveByEnvelope returns every active transaction linked to an envelope.
func (r *TransactionRepository) ListActiveByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE envelope_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, envelopeID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

// SumExpensesByEnvelope groups active GASTO amounts on an envelope by owner.
func (r *TransactionRepository) SumExpensesByEnvelope(ctx context.Context, tx usecase.Tx, envelopeID string) ([]domain.UserSpending, error) {
	query := `
		SELECT owner_id, SUM(amount)
		FROM transactions
		WHERE envelope_id = $1 AND type = $2 AND deleted_at IS NULL
		GROUP BY owner_id
		ORDER BY owner_id
	`

	rows, err := txQuerier(tx).Query(ctx, query, envelopeID, string(domain.TransactionTypeGasto))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UserSpending
	for rows.Next() {
		var (
			userID string
			sum    pgtype.Numeric
		)
		if err := rows.Scan(&userID, &sum); err != nil {
			return nil, err
		}
		out = append(out, domain.UserSpending{UserID: userID, Amount: numericToDecimal(sum)})
	}

	return out, rows.Err()
}

func encodeDetails(t *domain.Transaction) (cardPayment, conversion, autoIncrease []byte, err error) {
	if cardPayment, err = toJSON(t.CardPayment); err != nil {
		return nil, nil, nil, err
	}
	if conversion, err = toJSON(t.Conversion); err != nil {
		return nil, nil, nil, err
	}
	if autoIncrease, err = toJSON(t.AutoIncrease); err != nil {
		return nil, nil, nil, err
	}
	return cardPayment, conversion, autoIncrease, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t, err := scanTransactionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func scanTransactionRow(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                                     domain.Transaction
		amount                                pgtype.Numeric
		txType, direction                     string
		cardPayment, conversion, autoIncrease []byte
	)

	err := row.Scan(
		&t.ID,
		&amount,
		&t.CurrencyID,
		&t.WalletID,
		&txType,
		&direction,
		&t.OwnerID,
		&t.Description,
		&t.Date,
		&t.EnvelopeID,
		&t.CategoryID,
		&t.SubcategoryID,
		&t.DestinationWalletID,
		&cardPayment,
		&conversion,
		&autoIncrease,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount = numericToDecimal(amount)
	t.Type = domain.TransactionType(txType)
	t.Direction = domain.AdjustmentDirection(direction)

	if t.CardPayment, err = fromJSON[domain.CardPaymentDetail](cardPayment); err != nil {
		return nil, err
	}
	if t.Conversion, err = fromJSON[domain.ConversionDetail](conversion); err != nil {
		return nil, err
	}
	if t.AutoIncrease, err = fromJSON[domain.AutoIncreaseDetail](autoIncrease); err != nil {
		return nil, err
	}

	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}
