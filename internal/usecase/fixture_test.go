package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/adapter/repository/memory"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// seqIDs hands out ordered ids so lock order in tests is predictable.
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%05d", g.n)
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	txm   *memory.TxManager

	walletRepo      *memory.WalletRepository
	envelopeRepo    *memory.EnvelopeRepository
	transactionRepo *memory.TransactionRepository
	participantRepo *memory.ParticipantRepository
	allocationRepo  *memory.AllocationRepository
	outboxRepo      *memory.OutboxRepository

	wallets        *usecase.WalletUseCase
	envelopes      *usecase.EnvelopeUseCase
	transactions   *usecase.TransactionUseCase
	transfers      *usecase.TransferUseCase
	categories     *usecase.CategoryUseCase
	preferences    *usecase.PreferenceUseCase
	reconciliation *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	ids := &seqIDs{}

	f := &fixture{
		ctx:             context.Background(),
		store:           store,
		txm:             txm,
		walletRepo:      memory.NewWalletRepository(store),
		envelopeRepo:    memory.NewEnvelopeRepository(store),
		transactionRepo: memory.NewTransactionRepository(store),
		participantRepo: memory.NewParticipantRepository(store),
		allocationRepo:  memory.NewAllocationRepository(store),
		outboxRepo:      memory.NewOutboxRepository(store),
	}
	categoryRepo := memory.NewCategoryRepository(store)
	subcategoryRepo := memory.NewSubcategoryRepository(store)

	f.wallets = usecase.NewWalletUseCase(txm, f.walletRepo, f.transactionRepo, ids).
		WithOutbox(f.outboxRepo)
	f.envelopes = usecase.NewEnvelopeUseCase(txm, f.envelopeRepo, f.walletRepo, f.transactionRepo,
		categoryRepo, f.participantRepo, f.allocationRepo, ids).
		WithOutbox(f.outboxRepo)
	f.transactions = usecase.NewTransactionUseCase(txm, f.walletRepo, f.envelopeRepo, f.transactionRepo,
		categoryRepo, subcategoryRepo, f.participantRepo, f.allocationRepo, ids).
		WithOutbox(f.outboxRepo)
	f.preferences = usecase.NewPreferenceUseCase(memory.NewPreferenceRepository(store), nil, 0, "EUR")
	f.transfers = usecase.NewTransferUseCase(txm, f.walletRepo, f.envelopeRepo, f.transactionRepo,
		f.participantRepo, f.allocationRepo, f.preferences, ids).
		WithOutbox(f.outboxRepo)
	f.categories = usecase.NewCategoryUseCase(categoryRepo, subcategoryRepo, ids)
	f.reconciliation = usecase.NewReconciliationUseCase(f.walletRepo, f.envelopeRepo, f.transactionRepo, f.allocationRepo)

	return f
}

func (f *fixture) wallet(t *testing.T, owner, currency, balance string) *domain.Wallet {
	t.Helper()

	w, err := f.wallets.CreateWallet(f.ctx, usecase.CreateWalletInput{
		OwnerID:        owner,
		Name:           "Wallet " + balance,
		Type:           domain.WalletTypeDebit,
		CurrencyID:     currency,
		InitialBalance: dec(balance),
	})
	require.NoError(t, err)
	return w
}

func (f *fixture) envelope(t *testing.T, owner, currency, budget string, shared bool) *domain.Envelope {
	t.Helper()

	e, err := f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID:       owner,
		Name:          "Groceries",
		Type:          domain.EnvelopeTypeExpense,
		CurrencyID:    currency,
		InitialBudget: dec(budget),
		Shared:        shared,
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) expense(t *testing.T, owner string, w *domain.Wallet, amount string, envelopeID *string) *usecase.TransactionResult {
	t.Helper()

	res, err := f.transactions.CreateExpense(f.ctx, usecase.CreateTransactionInput{
		OwnerID:    owner,
		WalletID:   w.ID,
		Amount:     dec(amount),
		EnvelopeID: envelopeID,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) reloadWallet(t *testing.T, id string) *domain.Wallet {
	t.Helper()
	w, err := f.walletRepo.GetByID(f.ctx, id)
	require.NoError(t, err)
	return w
}

func (f *fixture) reloadEnvelope(t *testing.T, id string) *domain.Envelope {
	t.Helper()
	e, err := f.envelopeRepo.GetByID(f.ctx, id)
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}
