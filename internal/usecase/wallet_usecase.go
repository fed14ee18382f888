package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
)

// WalletUseCase handles wallet business logic.
type WalletUseCase struct {
	runner          txRunner
	walletRepo      WalletRepository
	transactionRepo TransactionRepository
	idGen           IDGenerator
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TxManager,
	walletRepo WalletRepository,
	transactionRepo TransactionRepository,
	idGen IDGenerator,
) *WalletUseCase {
	return &WalletUseCase{
		runner:          txRunner{txManager: txManager, idGen: idGen},
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		idGen:           idGen,
	}
}

// WithRetrier sets the retrier used around each database transaction.
func (uc *WalletUseCase) WithRetrier(retrier Retrier) *WalletUseCase {
	uc.runner.retrier = retrier
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *WalletUseCase) WithMetrics(metrics MetricsRecorder) *WalletUseCase {
	uc.runner.metrics = metrics
	return uc
}

// WithOutbox enables outbox events.
func (uc *WalletUseCase) WithOutbox(outbox OutboxRepository) *WalletUseCase {
	uc.runner.outbox = outbox
	return uc
}

// CreateWalletInput represents input for creating a wallet.
type CreateWalletInput struct {
	OwnerID        string
	Name           string
	Type           domain.WalletType
	CurrencyID     string
	InitialBalance decimal.Decimal
	InterestRate   *decimal.Decimal
	Shared         bool
}

// UpdateWalletInput represents input for updating a wallet.
type UpdateWalletInput struct {
	ID      string
	OwnerID string
	Patch   domain.WalletPatch
}

// AdjustWalletInput sets a wallet's balance to Target through an AJUSTE.
type AdjustWalletInput struct {
	ID          string
	OwnerID     string
	Target      decimal.Decimal
	Description string
}

// AdjustResult holds the wallet after an adjustment. Transaction is nil when
// the balance already matched.
type AdjustResult struct {
	Wallet      *domain.Wallet
	Transaction *domain.Transaction
}

// CreateWallet creates a wallet. A nonzero initial balance is recorded as an
// AJUSTE transaction.
func (uc *WalletUseCase) CreateWallet(ctx context.Context, input CreateWalletInput) (*domain.Wallet, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}

	name, err := domain.ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, domain.ErrInvalidWalletType
	}
	currency, err := domain.NormalizeCurrency(input.CurrencyID)
	if err != nil {
		return nil, err
	}
	if input.InterestRate != nil && input.InterestRate.IsNegative() {
		return nil, domain.ErrInvalidInterestRate
	}
	if !input.InitialBalance.IsZero() {
		if err := domain.ValidateAmount(input.InitialBalance.Abs()); err != nil {
			return nil, err
		}
	}

	var wallet *domain.Wallet

	err = uc.runner.run(ctx, "wallet.create", func(ctx context.Context, tx Tx) error {
		ts := now()
		w := &domain.Wallet{
			ID:           uc.idGen.Generate(),
			Name:         name,
			Type:         input.Type,
			CurrencyID:   currency,
			InterestRate: input.InterestRate,
			Shared:       input.Shared,
			OwnerID:      input.OwnerID,
			Version:      1,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}

		var opening *domain.Transaction
		if !input.InitialBalance.IsZero() {
			opening = uc.adjustment(w, input.InitialBalance, "initial balance")
			balances, err := domain.Apply(w.Balances(), opening.Movement())
			if err != nil {
				return err
			}
			w.SetBalances(balances)
		}

		if err := uc.walletRepo.Create(ctx, tx, w); err != nil {
			return err
		}

		if opening != nil {
			if err := uc.transactionRepo.Create(ctx, tx, opening); err != nil {
				return err
			}
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeWallet, w.ID, domain.EventTypeWalletCreated,
			domain.WalletEvent{WalletID: w.ID, OwnerID: w.OwnerID, Name: w.Name, Currency: w.CurrencyID}); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("wallet_id", wallet.ID).
		Str("currency", wallet.CurrencyID).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet returns one of the caller's wallets.
func (uc *WalletUseCase) GetWallet(ctx context.Context, ownerID, id string) (*domain.Wallet, error) {
	wallet, err := uc.walletRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkWalletOwner(wallet, ownerID); err != nil {
		return nil, err
	}
	return wallet, nil
}

// ListWallets lists the caller's active wallets.
func (uc *WalletUseCase) ListWallets(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Wallet, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.walletRepo.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateWallet applies a patch to the wallet's descriptive fields.
func (uc *WalletUseCase) UpdateWallet(ctx context.Context, input UpdateWalletInput) (*domain.Wallet, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}

	patch := input.Patch
	name, hasName := patch.Name.Get()
	if hasName {
		var err error
		if name, err = domain.ValidateName(name); err != nil {
			return nil, err
		}
	}
	if rate, ok := patch.InterestRate.Get(); ok && rate != nil && rate.IsNegative() {
		return nil, domain.ErrInvalidInterestRate
	}

	var wallet *domain.Wallet

	err := uc.runner.run(ctx, "wallet.update", func(ctx context.Context, tx Tx) error {
		w, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if err := checkWalletOwner(w, input.OwnerID); err != nil {
			return err
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != w.Version {
			return domain.ErrVersionConflict
		}

		if hasName {
			w.Name = name
		}
		if rate, ok := patch.InterestRate.Get(); ok {
			w.InterestRate = rate
		}
		if shared, ok := patch.Shared.Get(); ok {
			w.Shared = shared
		}
		w.UpdatedAt = now()

		if err := uc.walletRepo.Update(ctx, tx, w); err != nil {
			return err
		}

		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// DeleteWallet soft-deletes a wallet whose real balance is exactly zero.
func (uc *WalletUseCase) DeleteWallet(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	return uc.runner.run(ctx, "wallet.delete", func(ctx context.Context, tx Tx) error {
		w, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := checkWalletOwner(w, ownerID); err != nil {
			return err
		}
		if err := w.CanDelete(); err != nil {
			return err
		}

		ts := now()
		w.DeletedAt = &ts
		w.UpdatedAt = ts
		if err := uc.walletRepo.SoftDelete(ctx, tx, w); err != nil {
			return err
		}

		return uc.runner.emit(ctx, tx, domain.AggregateTypeWallet, w.ID, domain.EventTypeWalletDeleted,
			domain.WalletEvent{WalletID: w.ID, OwnerID: w.OwnerID, Name: w.Name, Currency: w.CurrencyID})
	})
}

// AdjustBalance records an AJUSTE bringing the real balance to the target.
func (uc *WalletUseCase) AdjustBalance(ctx context.Context, input AdjustWalletInput) (*AdjustResult, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if err := domain.ValidateScale(input.Target); err != nil {
		return nil, err
	}

	var result *AdjustResult

	err := uc.runner.run(ctx, "wallet.adjust", func(ctx context.Context, tx Tx) error {
		w, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if err := checkWalletOwner(w, input.OwnerID); err != nil {
			return err
		}

		diff := input.Target.Sub(w.RealBalance)
		if diff.IsZero() {
			result = &AdjustResult{Wallet: w}
			return nil
		}
		if err := domain.ValidateAmount(diff.Abs()); err != nil {
			return err
		}

		description := input.Description
		if description == "" {
			description = "balance adjustment"
		}

		row := uc.adjustment(w, diff, description)
		if err := uc.transactionRepo.Create(ctx, tx, row); err != nil {
			return err
		}

		balances, err := domain.Apply(w.Balances(), row.Movement())
		if err != nil {
			return err
		}
		w.SetBalances(balances)
		w.UpdatedAt = row.UpdatedAt

		if err := uc.walletRepo.Update(ctx, tx, w); err != nil {
			return err
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeTransaction, row.ID,
			domain.EventTypeTransactionCreated, transactionEvent(row)); err != nil {
			return err
		}

		result = &AdjustResult{Wallet: w, Transaction: row}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Transaction != nil {
		uc.runner.recorder().RecordTransaction(string(domain.TransactionTypeAjuste))
	}

	return result, nil
}

// ListTransactions lists the active transactions of one of the caller's wallets.
func (uc *WalletUseCase) ListTransactions(ctx context.Context, ownerID, walletID string, limit, offset int) ([]*domain.Transaction, error) {
	if _, err := uc.GetWallet(ctx, ownerID, walletID); err != nil {
		return nil, err
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	return uc.transactionRepo.List(ctx, domain.TransactionFilter{
		OwnerID:  ownerID,
		WalletID: &walletID,
		Limit:    limit,
		Offset:   offset,
	})
}

// adjustment builds an AJUSTE whose direction follows the sign of delta.
func (uc *WalletUseCase) adjustment(w *domain.Wallet, delta decimal.Decimal, description string) *domain.Transaction {
	direction := domain.AdjustmentIn
	if delta.IsNegative() {
		direction = domain.AdjustmentOut
	}

	ts := now()

	return &domain.Transaction{
		ID:          uc.idGen.Generate(),
		Amount:      delta.Abs(),
		CurrencyID:  w.CurrencyID,
		WalletID:    w.ID,
		Type:        domain.TransactionTypeAjuste,
		Direction:   direction,
		OwnerID:     w.OwnerID,
		Description: description,
		Date:        ts,
		Version:     1,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}
