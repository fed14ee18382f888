package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
)

// CurrencyResolver returns the currency used when a transfer names no wallet.
type CurrencyResolver interface {
	PrincipalCurrency(ctx context.Context, userID string) (string, error)
}

// TransferUseCase moves money between wallets and budget between envelopes.
type TransferUseCase struct {
	runner          txRunner
	walletRepo      WalletRepository
	envelopeRepo    EnvelopeRepository
	transactionRepo TransactionRepository
	participantRepo ParticipantRepository
	allocationRepo  AllocationRepository
	currencies      CurrencyResolver
	idGen           IDGenerator
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TxManager,
	walletRepo WalletRepository,
	envelopeRepo EnvelopeRepository,
	transactionRepo TransactionRepository,
	participantRepo ParticipantRepository,
	allocationRepo AllocationRepository,
	currencies CurrencyResolver,
	idGen IDGenerator,
) *TransferUseCase {
	return &TransferUseCase{
		runner:          txRunner{txManager: txManager, idGen: idGen},
		walletRepo:      walletRepo,
		envelopeRepo:    envelopeRepo,
		transactionRepo: transactionRepo,
		participantRepo: participantRepo,
		allocationRepo:  allocationRepo,
		currencies:      currencies,
		idGen:           idGen,
	}
}

// WithRetrier sets the retrier used around each database transaction.
func (uc *TransferUseCase) WithRetrier(retrier Retrier) *TransferUseCase {
	uc.runner.retrier = retrier
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *TransferUseCase) WithMetrics(metrics MetricsRecorder) *TransferUseCase {
	uc.runner.metrics = metrics
	return uc
}

// WithOutbox enables outbox events.
func (uc *TransferUseCase) WithOutbox(outbox OutboxRepository) *TransferUseCase {
	uc.runner.outbox = outbox
	return uc
}

// TransferInput represents input for a wallet transfer.
type TransferInput struct {
	OwnerID     string
	Source      domain.WalletRef
	Destination domain.WalletRef
	Amount      decimal.Decimal
	Description string
	Date        *time.Time
}

// TransferResult describes the rows a transfer wrote. Debit and Credit are
// nil for undeclared endpoints.
type TransferResult struct {
	Source      domain.WalletRef
	Destination domain.WalletRef
	Amount      decimal.Decimal
	CurrencyID  string
	Debit       *domain.Transaction
	Credit      *domain.Transaction
}

// Transfer moves money between two endpoints. Each real endpoint gets its
// own transaction row; two undeclared endpoints only record a note event.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	sourceID, sourceReal := input.Source.ID()
	destID, destReal := input.Destination.ID()

	if sourceReal && destReal && sourceID == destID {
		return nil, domain.ErrSameWallet
	}

	var fallbackCurrency string
	if !sourceReal && !destReal {
		currency, err := uc.currencies.PrincipalCurrency(ctx, input.OwnerID)
		if err != nil {
			return nil, err
		}
		fallbackCurrency = currency
	}

	ts := now()
	date := ts
	if input.Date != nil {
		date = input.Date.UTC()
	}

	var result *TransferResult

	err := uc.runner.run(ctx, "transfer.wallet", func(ctx context.Context, tx Tx) error {
		wallets, err := uc.lockWallets(ctx, tx, input.OwnerID, input.Source, input.Destination)
		if err != nil {
			return err
		}

		source := wallets[sourceID]
		dest := wallets[destID]

		if sourceReal && destReal && source.CurrencyID != dest.CurrencyID {
			return domain.ErrCurrencyMismatch
		}

		res := &TransferResult{
			Source:      input.Source,
			Destination: input.Destination,
			Amount:      input.Amount,
			CurrencyID:  fallbackCurrency,
		}

		if sourceReal {
			res.CurrencyID = source.CurrencyID
			debit := uc.newRow(input.OwnerID, source, domain.TransactionTypeTransferencia, input.Amount, input.Description, date, ts)
			if destReal {
				debit.DestinationWalletID = &dest.ID
			}
			if err := uc.record(ctx, tx, source, debit); err != nil {
				return err
			}
			res.Debit = debit
		}

		if destReal {
			res.CurrencyID = dest.CurrencyID
			credit := uc.newRow(input.OwnerID, dest, domain.TransactionTypeDeposito, input.Amount, input.Description, date, ts)
			if err := uc.record(ctx, tx, dest, credit); err != nil {
				return err
			}
			res.Credit = credit
		}

		eventType := domain.EventTypeTransferCompleted
		if !sourceReal && !destReal {
			eventType = domain.EventTypeTransferNoted
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeTransfer, uc.idGen.Generate(), eventType,
			transferEvent(input.OwnerID, res)); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	mode := transferMode(sourceReal, destReal)
	uc.runner.recorder().RecordTransfer(mode)
	zerolog.Ctx(ctx).Info().
		Str("source", input.Source.String()).
		Str("destination", input.Destination.String()).
		Str("amount", input.Amount.String()).
		Str("mode", mode).
		Msg("transfer completed")

	return result, nil
}

// CardPaymentInput represents input for paying a credit card from a wallet.
type CardPaymentInput struct {
	OwnerID        string
	SourceWalletID string
	CardWalletID   string
	Amount         decimal.Decimal
	Description    string
	Statement      string
	Date           *time.Time
}

// PayCreditCard debits the source wallet with a PAGO_TC row and credits the
// card wallet with a DEPOSITO row.
func (uc *TransferUseCase) PayCreditCard(ctx context.Context, input CardPaymentInput) (*TransferResult, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if input.SourceWalletID == input.CardWalletID {
		return nil, domain.ErrSameWallet
	}

	ts := now()
	date := ts
	if input.Date != nil {
		date = input.Date.UTC()
	}

	source := domain.RealWallet(input.SourceWalletID)
	card := domain.RealWallet(input.CardWalletID)

	var result *TransferResult

	err := uc.runner.run(ctx, "transfer.card_payment", func(ctx context.Context, tx Tx) error {
		wallets, err := uc.lockWallets(ctx, tx, input.OwnerID, source, card)
		if err != nil {
			return err
		}

		from := wallets[input.SourceWalletID]
		to := wallets[input.CardWalletID]

		if !to.Type.IsCreditCard() {
			return domain.ErrNotACreditWallet
		}
		if from.CurrencyID != to.CurrencyID {
			return domain.ErrCurrencyMismatch
		}

		debit := uc.newRow(input.OwnerID, from, domain.TransactionTypePagoTC, input.Amount, input.Description, date, ts)
		debit.DestinationWalletID = &to.ID
		debit.CardPayment = &domain.CardPaymentDetail{CardWalletID: to.ID, Statement: input.Statement}
		if err := uc.record(ctx, tx, from, debit); err != nil {
			return err
		}

		credit := uc.newRow(input.OwnerID, to, domain.TransactionTypeDeposito, input.Amount, input.Description, date, ts)
		if err := uc.record(ctx, tx, to, credit); err != nil {
			return err
		}

		res := &TransferResult{
			Source:      source,
			Destination: card,
			Amount:      input.Amount,
			CurrencyID:  from.CurrencyID,
			Debit:       debit,
			Credit:      credit,
		}

		if err := uc.runner.emit(ctx, tx, domain.AggregateTypeTransfer, uc.idGen.Generate(),
			domain.EventTypeTransferCompleted, transferEvent(input.OwnerID, res)); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.runner.recorder().RecordTransfer("card_payment")

	return result, nil
}

// BudgetTransferInput represents input for moving budget between envelopes.
type BudgetTransferInput struct {
	UserID                string
	SourceEnvelopeID      string
	DestinationEnvelopeID string
	Amount                decimal.Decimal
}

// BudgetTransferResult holds both envelopes after a budget move.
type BudgetTransferResult struct {
	Source      *domain.Envelope
	Destination *domain.Envelope
	Amount      decimal.Decimal
}

// TransferBudget moves assigned budget from one envelope to another and
// records a transfer allocation on each side.
func (uc *TransferUseCase) TransferBudget(ctx context.Context, input BudgetTransferInput) (*BudgetTransferResult, error) {
	if err := requireOwner(input.UserID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if input.SourceEnvelopeID == input.DestinationEnvelopeID {
		return nil, domain.ErrSameEnvelope
	}

	ids := []string{input.SourceEnvelopeID, input.DestinationEnvelopeID}
	sort.Strings(ids)

	var result *BudgetTransferResult

	err := uc.runner.run(ctx, "transfer.budget", func(ctx context.Context, tx Tx) error {
		envelopes, err := uc.envelopeRepo.GetByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(envelopes) != len(ids) {
			return domain.ErrEnvelopeNotFound
		}

		byID := make(map[string]*domain.Envelope, len(envelopes))
		for _, e := range envelopes {
			if err := checkEnvelopeManage(ctx, uc.participantRepo, e, input.UserID); err != nil {
				return err
			}
			byID[e.ID] = e
		}

		source := byID[input.SourceEnvelopeID]
		dest := byID[input.DestinationEnvelopeID]

		if source.CurrencyID != dest.CurrencyID {
			return domain.ErrCurrencyMismatch
		}
		if source.BudgetAssigned.LessThan(input.Amount) {
			return domain.ErrInsufficientBudget
		}

		ts := now()
		moves := []struct {
			envelope *domain.Envelope
			change   decimal.Decimal
		}{
			{source, input.Amount.Neg()},
			{dest, input.Amount},
		}

		for _, m := range moves {
			m.envelope.BudgetAssigned = m.envelope.BudgetAssigned.Add(m.change)
			m.envelope.UpdatedAt = ts
			if err := uc.envelopeRepo.Update(ctx, tx, m.envelope); err != nil {
				return err
			}

			if err := uc.allocationRepo.Create(ctx, tx, &domain.BudgetAllocation{
				ID:         uc.idGen.Generate(),
				EnvelopeID: m.envelope.ID,
				UserID:     input.UserID,
				Amount:     m.change,
				CurrencyID: m.envelope.CurrencyID,
				Type:       domain.AllocationTransfer,
				CreatedAt:  ts,
			}); err != nil {
				return err
			}

			if err := uc.runner.emit(ctx, tx, domain.AggregateTypeEnvelope, m.envelope.ID,
				domain.EventTypeEnvelopeBudgetChanged, domain.EnvelopeBudgetEvent{
					EnvelopeID:     m.envelope.ID,
					AllocationType: string(domain.AllocationTransfer),
					Change:         m.change.String(),
					BudgetAssigned: m.envelope.BudgetAssigned.String(),
				}); err != nil {
				return err
			}
		}

		result = &BudgetTransferResult{Source: source, Destination: dest, Amount: input.Amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.runner.recorder().RecordBudgetChange(string(domain.AllocationTransfer))

	return result, nil
}

// lockWallets locks the real endpoints in id order (deadlock prevention)
// and checks the caller owns each of them.
func (uc *TransferUseCase) lockWallets(ctx context.Context, tx Tx, ownerID string, refs ...domain.WalletRef) (map[string]*domain.Wallet, error) {
	var ids []string
	for _, ref := range refs {
		if id, ok := ref.ID(); ok {
			ids = append(ids, id)
		}
	}

	wallets := make(map[string]*domain.Wallet, len(ids))
	if len(ids) == 0 {
		return wallets, nil
	}

	sort.Strings(ids)

	locked, err := uc.walletRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(locked) != len(ids) {
		return nil, domain.ErrWalletNotFound
	}

	for _, w := range locked {
		if err := checkWalletOwner(w, ownerID); err != nil {
			return nil, err
		}
		wallets[w.ID] = w
	}

	return wallets, nil
}

func (uc *TransferUseCase) newRow(ownerID string, wallet *domain.Wallet, txType domain.TransactionType, amount decimal.Decimal, description string, date, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:          uc.idGen.Generate(),
		Amount:      amount,
		CurrencyID:  wallet.CurrencyID,
		WalletID:    wallet.ID,
		Type:        txType,
		OwnerID:     ownerID,
		Description: description,
		Date:        date,
		Version:     1,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// record persists row and applies it to the locked wallet.
func (uc *TransferUseCase) record(ctx context.Context, tx Tx, wallet *domain.Wallet, row *domain.Transaction) error {
	if err := uc.transactionRepo.Create(ctx, tx, row); err != nil {
		return err
	}

	balances, err := domain.Apply(wallet.Balances(), row.Movement())
	if err != nil {
		return err
	}

	wallet.SetBalances(balances)
	wallet.UpdatedAt = row.UpdatedAt

	return uc.walletRepo.Update(ctx, tx, wallet)
}

func transferMode(sourceReal, destReal bool) string {
	switch {
	case sourceReal && destReal:
		return "wallet_to_wallet"
	case sourceReal:
		return "outgoing"
	case destReal:
		return "incoming"
	}
	return "note"
}

func transferEvent(ownerID string, res *TransferResult) domain.TransferEvent {
	var ids []string
	if res.Debit != nil {
		ids = append(ids, res.Debit.ID)
	}
	if res.Credit != nil {
		ids = append(ids, res.Credit.ID)
	}

	return domain.TransferEvent{
		Source:         res.Source.String(),
		Destination:    res.Destination.String(),
		Amount:         res.Amount.String(),
		Currency:       res.CurrencyID,
		OwnerID:        ownerID,
		TransactionIDs: ids,
	}
}
