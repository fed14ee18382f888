package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
)

// TransactionUseCase creates, updates and deletes ledger transactions while
// keeping wallet balances and envelope spent totals consistent.
type TransactionUseCase struct {
	runner          txRunner
	walletRepo      WalletRepository
	envelopeRepo    EnvelopeRepository
	transactionRepo TransactionRepository
	participantRepo ParticipantRepository
	allocationRepo  AllocationRepository
	categories      categoryResolver
	tracker         *BudgetTracker
	idGen           IDGenerator
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TxManager,
	walletRepo WalletRepository,
	envelopeRepo EnvelopeRepository,
	transactionRepo TransactionRepository,
	categoryRepo CategoryRepository,
	subcategoryRepo SubcategoryRepository,
	participantRepo ParticipantRepository,
	allocationRepo AllocationRepository,
	idGen IDGenerator,
) *TransactionUseCase {
	return &TransactionUseCase{
		runner:          txRunner{txManager: txManager, idGen: idGen},
		walletRepo:      walletRepo,
		envelopeRepo:    envelopeRepo,
		transactionRepo: transactionRepo,
		participantRepo: participantRepo,
		allocationRepo:  allocationRepo,
		categories:      categoryResolver{categories: categoryRepo, subcategories: subcategoryRepo},
		tracker:         NewBudgetTracker(envelopeRepo, transactionRepo, participantRepo),
		idGen:           idGen,
	}
}

// WithRetrier sets the retrier used around each database transaction.
func (uc *TransactionUseCase) WithRetrier(retrier Retrier) *TransactionUseCase {
	uc.runner.retrier = retrier
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *TransactionUseCase) WithMetrics(metrics MetricsRecorder) *TransactionUseCase {
	uc.runner.metrics = metrics
	return uc
}

// WithOutbox enables outbox events.
func (uc *TransactionUseCase) WithOutbox(outbox OutboxRepository) *TransactionUseCase {
	uc.runner.outbox = outbox
	return uc
}

// CreateTransactionInput represents input for creating a transaction.
type CreateTransactionInput struct {
	OwnerID       string
	WalletID      string
	Type          domain.TransactionType
	Direction     domain.AdjustmentDirection
	Amount        decimal.Decimal
	Description   string
	Date          *time.Time
	EnvelopeID    *string
	CategoryID    *string
	SubcategoryID *string
	Conversion    *domain.ConversionDetail
	// AutoIncreaseEnvelope raises the envelope budget by the overage instead
	// of warning about it.
	AutoIncreaseEnvelope bool
}

// UpdateTransactionInput represents input for updating a transaction.
type UpdateTransactionInput struct {
	ID      string
	OwnerID string
	Patch   domain.TransactionPatch
}

// TransactionResult is a written transaction plus its advisory warning.
type TransactionResult struct {
	Transaction *domain.Transaction
	Warning     *domain.Warning
}

// CreateExpense creates a GASTO transaction.
func (uc *TransactionUseCase) CreateExpense(ctx context.Context, input CreateTransactionInput) (*TransactionResult, error) {
	input.Type = domain.TransactionTypeGasto
	return uc.Create(ctx, input)
}

// CreateIncome creates an INGRESO transaction.
func (uc *TransactionUseCase) CreateIncome(ctx context.Context, input CreateTransactionInput) (*TransactionResult, error) {
	input.Type = domain.TransactionTypeIngreso
	return uc.Create(ctx, input)
}

// Create validates and records a transaction, applies it to its wallet and
// recomputes the linked envelope.
func (uc *TransactionUseCase) Create(ctx context.Context, input CreateTransactionInput) (*TransactionResult, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}

	ts := now()
	date := ts
	if input.Date != nil {
		date = input.Date.UTC()
	}

	row := &domain.Transaction{
		Amount:        input.Amount,
		WalletID:      input.WalletID,
		Type:          input.Type,
		Direction:     input.Direction,
		OwnerID:       input.OwnerID,
		Description:   input.Description,
		Date:          date,
		EnvelopeID:    input.EnvelopeID,
		CategoryID:    input.CategoryID,
		SubcategoryID: input.SubcategoryID,
		Conversion:    input.Conversion,
		Version:       1,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}

	if err := row.Validate(); err != nil {
		return nil, err
	}

	var result *TransactionResult

	err := uc.runner.run(ctx, "transaction.create", func(ctx context.Context, tx Tx) error {
		created := *row
		created.ID = uc.idGen.Generate()

		wallet, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, created.WalletID)
		if err != nil {
			return err
		}
		if err := checkWalletOwner(wallet, created.OwnerID); err != nil {
			return err
		}
		created.CurrencyID = wallet.CurrencyID

		created.CategoryID, created.SubcategoryID, err = uc.categories.resolve(ctx, created.OwnerID, created.CategoryID, created.SubcategoryID)
		if err != nil {
			return err
		}

		var envelope *domain.Envelope
		if created.EnvelopeID != nil {
			envelope, err = uc.lockLinkedEnvelope(ctx, tx, &created, wallet)
			if err != nil {
				return err
			}
		}

		if input.AutoIncreaseEnvelope && created.IsEnvelopeExpense() {
			if err := uc.autoIncrease(ctx, tx, &created, envelope); err != nil {
				return err
			}
		}

		warning := domain.ComputeWarning(created.Type, created.Amount, wallet, envelope)

		if err := uc.transactionRepo.Create(ctx, tx, &created); err != nil {
			return err
		}

		if err := uc.applyToWallet(ctx, tx, wallet, domain.Movement{}, created.Movement()); err != nil {
			return err
		}

		if created.IsEnvelopeExpense() {
			if err := uc.tracker.Recompute(ctx, tx, envelope); err != nil {
				return err
			}
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeTransaction, created.ID,
			domain.EventTypeTransactionCreated, transactionEvent(&created)); err != nil {
			return err
		}

		result = &TransactionResult{Transaction: &created, Warning: warning}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.recordResult(ctx, "created", result)

	return result, nil
}

// Update changes the mutable fields of a transaction. An amount change
// reverts the old effect on the wallet before applying the new one.
func (uc *TransactionUseCase) Update(ctx context.Context, input UpdateTransactionInput) (*TransactionResult, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}

	patch := input.Patch
	if amount, ok := patch.Amount.Get(); ok {
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, err
		}
	}
	if description, ok := patch.Description.Get(); ok {
		if err := domain.ValidateDescription(description); err != nil {
			return nil, err
		}
	}

	var result *TransactionResult

	err := uc.runner.run(ctx, "transaction.update", func(ctx context.Context, tx Tx) error {
		row, err := uc.transactionRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if row.OwnerID != input.OwnerID {
			return domain.ErrTransactionAccessDenied
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != row.Version {
			return domain.ErrVersionConflict
		}

		old := *row
		applyTransactionPatch(row, patch)

		if patch.SubcategoryID.IsSet() && !patch.CategoryID.IsSet() && row.SubcategoryID != nil {
			row.CategoryID = nil
		}
		if patch.CategoryID.IsSet() || patch.SubcategoryID.IsSet() {
			row.CategoryID, row.SubcategoryID, err = uc.categories.resolve(ctx, row.OwnerID, row.CategoryID, row.SubcategoryID)
			if err != nil {
				return err
			}
		}

		wallet, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, row.WalletID)
		if err != nil {
			return err
		}

		amountChanged := !old.Amount.Equal(row.Amount)
		envelopeChanged := !domain.StringPtrEqual(old.EnvelopeID, row.EnvelopeID)

		var envelope *domain.Envelope
		var relinked []*domain.Envelope
		switch {
		case envelopeChanged:
			envelope, relinked, err = uc.lockRelinkedEnvelopes(ctx, tx, &old, row, wallet)
		case row.EnvelopeID != nil:
			envelope, err = uc.envelopeRepo.GetByIDForUpdate(ctx, tx, *row.EnvelopeID)
			if errors.Is(err, domain.ErrEnvelopeNotFound) {
				envelope, err = nil, nil
			}
		}
		if err != nil {
			return err
		}

		warning := uc.warningAsIfNew(&old, row, wallet, envelope)

		if amountChanged {
			if err := uc.applyToWallet(ctx, tx, wallet, old.Movement(), row.Movement()); err != nil {
				return err
			}
		}

		row.UpdatedAt = now()
		if err := uc.transactionRepo.Update(ctx, tx, row); err != nil {
			return err
		}

		if row.Type == domain.TransactionTypeGasto {
			var stale []*domain.Envelope
			switch {
			case envelopeChanged:
				stale = relinked
			case amountChanged && envelope != nil:
				stale = []*domain.Envelope{envelope}
			}
			for _, e := range stale {
				if err := uc.tracker.Recompute(ctx, tx, e); err != nil {
					return err
				}
			}
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeTransaction, row.ID,
			domain.EventTypeTransactionUpdated, transactionEvent(row)); err != nil {
			return err
		}

		result = &TransactionResult{Transaction: row, Warning: warning}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.recordResult(ctx, "updated", result)

	return result, nil
}

// Delete soft-deletes a transaction and reverts its wallet effect.
func (uc *TransactionUseCase) Delete(ctx context.Context, ownerID, id string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	return uc.runner.run(ctx, "transaction.delete", func(ctx context.Context, tx Tx) error {
		row, err := uc.transactionRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if row.OwnerID != ownerID {
			return domain.ErrTransactionAccessDenied
		}

		wallet, err := uc.walletRepo.GetByIDForUpdate(ctx, tx, row.WalletID)
		if err != nil {
			return err
		}

		if err := uc.applyToWallet(ctx, tx, wallet, row.Movement(), domain.Movement{}); err != nil {
			return err
		}

		ts := now()
		row.DeletedAt = &ts
		row.UpdatedAt = ts
		if err := uc.transactionRepo.SoftDelete(ctx, tx, row); err != nil {
			return err
		}

		if row.IsEnvelopeExpense() {
			if err := uc.tracker.RecomputeIDs(ctx, tx, []string{*row.EnvelopeID}); err != nil {
				return err
			}
		}

		zerolog.Ctx(ctx).Info().
			Str("transaction_id", row.ID).
			Str("wallet_id", row.WalletID).
			Msg("transaction deleted")

		return uc.runner.emit(ctx, tx, domain.AggregateTypeTransaction, row.ID,
			domain.EventTypeTransactionDeleted, transactionEvent(row))
	})
}

// Get returns one of the caller's transactions.
func (uc *TransactionUseCase) Get(ctx context.Context, ownerID, id string) (*domain.Transaction, error) {
	row, err := uc.transactionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.OwnerID != ownerID {
		return nil, domain.ErrTransactionAccessDenied
	}
	return row, nil
}

// List returns the caller's transactions matching filter.
func (uc *TransactionUseCase) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	if err := requireOwner(filter.OwnerID); err != nil {
		return nil, err
	}
	if filter.Type != nil && !filter.Type.IsValid() {
		return nil, domain.ErrInvalidTransactionType
	}

	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)

	return uc.transactionRepo.List(ctx, filter)
}

// lockLinkedEnvelope loads the envelope a transaction links to and checks
// that the owner may spend from it.
func (uc *TransactionUseCase) lockLinkedEnvelope(ctx context.Context, tx Tx, row *domain.Transaction, wallet *domain.Wallet) (*domain.Envelope, error) {
	envelope, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, *row.EnvelopeID)
	if err != nil {
		return nil, err
	}

	if err := uc.checkLinkedEnvelope(ctx, row, wallet, envelope); err != nil {
		return nil, err
	}

	return envelope, nil
}

// lockRelinkedEnvelopes locks the previous and the new envelope of a row in
// id order, then checks the caller may spend from the new one. The previous
// envelope may be gone already.
func (uc *TransactionUseCase) lockRelinkedEnvelopes(ctx context.Context, tx Tx, old, row *domain.Transaction, wallet *domain.Wallet) (*domain.Envelope, []*domain.Envelope, error) {
	locked, err := uc.envelopeRepo.GetByIDsForUpdate(ctx, tx, uniqueSorted(old.EnvelopeID, row.EnvelopeID))
	if err != nil {
		return nil, nil, err
	}

	if row.EnvelopeID == nil {
		return nil, locked, nil
	}

	for _, e := range locked {
		if e.ID != *row.EnvelopeID {
			continue
		}
		if err := uc.checkLinkedEnvelope(ctx, row, wallet, e); err != nil {
			return nil, nil, err
		}
		return e, locked, nil
	}

	return nil, nil, domain.ErrEnvelopeNotFound
}

func (uc *TransactionUseCase) checkLinkedEnvelope(ctx context.Context, row *domain.Transaction, wallet *domain.Wallet, envelope *domain.Envelope) error {
	if err := checkEnvelopeSpend(ctx, uc.participantRepo, envelope, row.OwnerID); err != nil {
		return err
	}

	if row.Type == domain.TransactionTypeGasto && envelope.CurrencyID != wallet.CurrencyID {
		return domain.ErrCurrencyMismatch
	}

	return nil
}

// autoIncrease raises the envelope budget to cover the expense. Raising a
// budget needs the same manage rights as an explicit increase.
func (uc *TransactionUseCase) autoIncrease(ctx context.Context, tx Tx, row *domain.Transaction, envelope *domain.Envelope) error {
	projected := envelope.Spent.Add(row.Amount)
	if !projected.GreaterThan(envelope.BudgetAssigned) {
		return nil
	}

	if err := checkEnvelopeManage(ctx, uc.participantRepo, envelope, row.OwnerID); err != nil {
		return err
	}

	increase := projected.Sub(envelope.BudgetAssigned)
	previous := envelope.BudgetAssigned
	envelope.BudgetAssigned = projected

	walletID := row.WalletID
	if err := uc.allocationRepo.Create(ctx, tx, &domain.BudgetAllocation{
		ID:         uc.idGen.Generate(),
		EnvelopeID: envelope.ID,
		WalletID:   &walletID,
		UserID:     row.OwnerID,
		Amount:     increase,
		CurrencyID: envelope.CurrencyID,
		Type:       domain.AllocationIncrease,
		CreatedAt:  now(),
	}); err != nil {
		return err
	}

	row.AutoIncrease = &domain.AutoIncreaseDetail{
		EnvelopeID:     envelope.ID,
		Increase:       increase,
		PreviousBudget: previous,
		NewBudget:      projected,
	}

	uc.runner.recorder().RecordBudgetChange(string(domain.AllocationIncrease))

	return uc.runner.emit(ctx, tx, domain.AggregateTypeEnvelope, envelope.ID,
		domain.EventTypeEnvelopeBudgetChanged, domain.EnvelopeBudgetEvent{
			EnvelopeID:     envelope.ID,
			AllocationType: string(domain.AllocationIncrease),
			Change:         increase.String(),
			BudgetAssigned: projected.String(),
		})
}

// applyToWallet reverts undo and applies do on the locked wallet. A zero
// Movement is skipped.
func (uc *TransactionUseCase) applyToWallet(ctx context.Context, tx Tx, wallet *domain.Wallet, undo, do domain.Movement) error {
	balances := wallet.Balances()

	var err error
	if undo.Type != "" {
		if balances, err = domain.Revert(balances, undo); err != nil {
			return err
		}
	}
	if do.Type != "" {
		if balances, err = domain.Apply(balances, do); err != nil {
			return err
		}
	}

	wallet.SetBalances(balances)
	wallet.UpdatedAt = now()

	return uc.walletRepo.Update(ctx, tx, wallet)
}

// warningAsIfNew evaluates the updated row against wallet and envelope
// state with the old row's effect removed.
func (uc *TransactionUseCase) warningAsIfNew(old, row *domain.Transaction, wallet *domain.Wallet, envelope *domain.Envelope) *domain.Warning {
	if row.Type != domain.TransactionTypeGasto || envelope == nil {
		return nil
	}

	walletBefore := *wallet
	if b, err := domain.Revert(wallet.Balances(), old.Movement()); err == nil {
		walletBefore.SetBalances(b)
	}

	envelopeBefore := *envelope
	if old.IsEnvelopeExpense() && *old.EnvelopeID == envelope.ID {
		envelopeBefore.Spent = envelope.Spent.Sub(old.Amount)
	}

	return domain.ComputeWarning(row.Type, row.Amount, &walletBefore, &envelopeBefore)
}

func (uc *TransactionUseCase) recordResult(ctx context.Context, action string, result *TransactionResult) {
	m := uc.runner.recorder()
	m.RecordTransaction(string(result.Transaction.Type))

	event := zerolog.Ctx(ctx).Info().
		Str("transaction_id", result.Transaction.ID).
		Str("type", string(result.Transaction.Type)).
		Str("amount", result.Transaction.Amount.String())

	if result.Warning != nil {
		m.RecordWarning(string(result.Warning.Type))
		event = event.Str("warning", string(result.Warning.Type))
	}

	event.Msg("transaction " + action)
}

func applyTransactionPatch(row *domain.Transaction, patch domain.TransactionPatch) {
	if v, ok := patch.Amount.Get(); ok {
		row.Amount = v
	}
	if v, ok := patch.Description.Get(); ok {
		row.Description = v
	}
	if v, ok := patch.Date.Get(); ok {
		row.Date = v.UTC()
	}
	if v, ok := patch.EnvelopeID.Get(); ok {
		row.EnvelopeID = v
	}
	if v, ok := patch.CategoryID.Get(); ok {
		row.CategoryID = v
	}
	if v, ok := patch.SubcategoryID.Get(); ok {
		row.SubcategoryID = v
	}
}

func transactionEvent(row *domain.Transaction) domain.TransactionEvent {
	return domain.TransactionEvent{
		TransactionID: row.ID,
		WalletID:      row.WalletID,
		OwnerID:       row.OwnerID,
		Type:          string(row.Type),
		Amount:        row.Amount.String(),
		Currency:      row.CurrencyID,
		EnvelopeID:    row.EnvelopeID,
		Version:       row.Version,
	}
}
