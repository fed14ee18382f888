package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

func beginMockTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Tx {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func TestWalletRepository_UpdateBumpsVersion(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := &WalletRepository{db: pool}

	pool.ExpectExec("UPDATE wallets").
		WithArgs("w1", int64(4), "Main", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	wallet := &domain.Wallet{ID: "w1", Name: "Main", RealBalance: decimal.NewFromInt(10), Version: 4}
	require.NoError(t, repo.Update(context.Background(), tx, wallet))
	assert.Equal(t, int64(5), wallet.Version)
	assertExpectations(t, pool)
}

func TestWalletRepository_UpdateStaleVersion(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := &WalletRepository{db: pool}

	pool.ExpectExec("UPDATE wallets").
		WithArgs("w1", int64(2), "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	pool.ExpectQuery("SELECT EXISTS").
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	wallet := &domain.Wallet{ID: "w1", Version: 2}
	err := repo.Update(context.Background(), tx, wallet)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, int64(2), wallet.Version)
	assertExpectations(t, pool)
}

func TestWalletRepository_SoftDeleteMissingRow(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := &WalletRepository{db: pool}

	pool.ExpectExec("UPDATE wallets").
		WithArgs("w1", int64(1), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	pool.ExpectQuery("SELECT EXISTS").
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.SoftDelete(context.Background(), tx, &domain.Wallet{ID: "w1", Version: 1})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assertExpectations(t, pool)
}

func TestWalletRepository_GetByID(t *testing.T) {
	pool := newMockPool(t)
	repo := &WalletRepository{db: pool}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	pool.ExpectQuery("SELECT (.+) FROM wallets WHERE id = \\$1 AND deleted_at IS NULL").
		WithArgs("w1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "type", "currency_id", "real_balance", "projected_balance",
			"interest_rate", "shared", "owner_id", "version", "created_at", "updated_at",
		}).AddRow(
			"w1", "Main", "debit", "USD",
			decimalToNumeric(decimal.RequireFromString("120.50")),
			decimalToNumeric(decimal.RequireFromString("120.50")),
			pgtype.Numeric{},
			false, "u1", int64(3), now, now,
		))

	w, err := repo.GetByID(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.WalletTypeDebit, w.Type)
	assert.True(t, decimal.RequireFromString("120.5").Equal(w.RealBalance))
	assert.Nil(t, w.InterestRate)
	assert.Equal(t, int64(3), w.Version)
	assertExpectations(t, pool)
}

func TestWalletRepository_GetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := &WalletRepository{db: pool}

	pool.ExpectQuery("SELECT (.+) FROM wallets").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestTransactionRepository_SumExpensesByEnvelope(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := &TransactionRepository{db: pool}

	pool.ExpectQuery("SELECT owner_id, SUM\\(amount\\)").
		WithArgs("e1", "GASTO").
		WillReturnRows(pgxmock.NewRows([]string{"owner_id", "sum"}).
			AddRow("u1", decimalToNumeric(decimal.NewFromInt(40))).
			AddRow("u2", decimalToNumeric(decimal.RequireFromString("2.25"))))

	rows, err := repo.SumExpensesByEnvelope(context.Background(), tx, "e1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "u2", rows[1].UserID)
	assert.True(t, decimal.RequireFromString("42.25").Equal(domain.TotalSpending(rows)))
	assertExpectations(t, pool)
}

func TestCategoryRepository_UniqueViolationIsDuplicate(t *testing.T) {
	pool := newMockPool(t)
	repo := &CategoryRepository{db: pool}

	pool.ExpectExec("INSERT INTO categories").
		WithArgs("c1", "u1", "Food", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := repo.Create(context.Background(), &domain.Category{ID: "c1", OwnerID: "u1", Name: "Food"})
	assert.ErrorIs(t, err, domain.ErrDuplicateCategory)
}

func TestSubcategoryRepository_UniqueViolationIsDuplicate(t *testing.T) {
	pool := newMockPool(t)
	repo := &SubcategoryRepository{db: pool}

	pool.ExpectExec("UPDATE subcategories").
		WithArgs("s1", "Fruit", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := repo.Update(context.Background(), &domain.Subcategory{ID: "s1", Name: "Fruit"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSubcategory)
}

func TestCategoryRepository_SoftDeleteMissing(t *testing.T) {
	pool := newMockPool(t)
	repo := &CategoryRepository{db: pool}
	at := time.Now().UTC()

	pool.ExpectQuery("WITH deleted AS").
		WithArgs("c1", at).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	err := repo.SoftDelete(context.Background(), "c1", at)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
	assertExpectations(t, pool)
}

func TestParticipantRepository_DeleteMissing(t *testing.T) {
	pool := newMockPool(t)
	tx := beginMockTx(t, pool)
	repo := &ParticipantRepository{db: pool}

	pool.ExpectExec("DELETE FROM envelope_participants").
		WithArgs("e1", "u9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), tx, "e1", "u9")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestPreferenceRepository_GetMissing(t *testing.T) {
	pool := newMockPool(t)
	repo := &PreferenceRepository{db: pool}

	pool.ExpectQuery("FROM user_preferences").
		WithArgs("u1").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrPreferenceNotFound)
}

func TestOutboxRepository_MarkPublished(t *testing.T) {
	pool := newMockPool(t)
	repo := &OutboxRepository{db: pool}
	at := time.Now().UTC()

	pool.ExpectExec("UPDATE outbox_events SET published = TRUE").
		WithArgs("ev1", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.MarkPublished(context.Background(), "ev1", at))
	assertExpectations(t, pool)
}
