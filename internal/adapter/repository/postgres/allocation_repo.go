package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// AllocationRepository implements usecase.AllocationRepository.
type AllocationRepository struct {
	db querier
}

// NewAllocationRepository creates a new AllocationRepository.
func NewAllocationRepository(pool *pgxpool.Pool) *AllocationRepository {
	return &AllocationRepository{db: pool}
}

// Create appends an allocation row.
func (r *AllocationRepository) Create(ctx context.Context, tx usecase.Tx, a *domain.BudgetAllocation) error {
	query := `
		INSERT INTO budget_allocations (id, envelope_id, wallet_id, user_id, amount, currency_id, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := txQuerier(tx).Exec(ctx, query,
		a.ID,
		a.EnvelopeID,
		a.WalletID,
		a.UserID,
		decimalToNumeric(a.Amount),
		a.CurrencyID,
		string(a.Type),
		a.CreatedAt,
	)

	return err
}

// ListByEnvelope lists an envelope's allocations oldest first.
func (r *AllocationRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.BudgetAllocation, error) {
	query := `
		SELECT id, envelope_id, wallet_id, user_id, amount, currency_id, type, created_at
		FROM budget_allocations
		WHERE envelope_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []*domain.BudgetAllocation
	for rows.Next() {
		var (
			a              domain.BudgetAllocation
			amount         pgtype.Numeric
			allocationType string
		)
		if err := rows.Scan(
			&a.ID,
			&a.EnvelopeID,
			&a.WalletID,
			&a.UserID,
			&amount,
			&a.CurrencyID,
			&allocationType,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.Amount = numericToDecimal(amount)
		a.Type = domain.AllocationType(allocationType)
		allocations = append(allocations, &a)
	}

	return allocations, rows.Err()
}
