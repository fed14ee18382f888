package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
)

const reconcilePageSize = 100

// ReconciliationUseCase compares stored balances with the transaction rows
// they are derived from. It never writes.
type ReconciliationUseCase struct {
	walletRepo      WalletRepository
	envelopeRepo    EnvelopeRepository
	transactionRepo TransactionRepository
	allocationRepo  AllocationRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	walletRepo WalletRepository,
	envelopeRepo EnvelopeRepository,
	transactionRepo TransactionRepository,
	allocationRepo AllocationRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		walletRepo:      walletRepo,
		envelopeRepo:    envelopeRepo,
		transactionRepo: transactionRepo,
		allocationRepo:  allocationRepo,
	}
}

// Discrepancy is one stored value that differs from its derivation.
type Discrepancy struct {
	ResourceType string
	ResourceID   string
	Field        string
	Recorded     decimal.Decimal
	Calculated   decimal.Decimal
	Difference   decimal.Decimal
}

// ReconciliationReport represents the result of a reconciliation check
type ReconciliationReport struct {
	OwnerID          string
	WalletsChecked   int
	EnvelopesChecked int
	Discrepancies    []Discrepancy
	CheckedAt        time.Time
}

// IsConsistent reports whether no discrepancy was found.
func (r *ReconciliationReport) IsConsistent() bool {
	return len(r.Discrepancies) == 0
}

// Reconcile checks every wallet and envelope of the owner.
func (uc *ReconciliationUseCase) Reconcile(ctx context.Context, ownerID string) (*ReconciliationReport, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	report := &ReconciliationReport{OwnerID: ownerID, CheckedAt: now()}

	for offset := 0; ; offset += reconcilePageSize {
		wallets, err := uc.walletRepo.ListByOwner(ctx, ownerID, reconcilePageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, w := range wallets {
			if err := uc.checkWallet(ctx, w, report); err != nil {
				return nil, err
			}
		}

		if len(wallets) < reconcilePageSize {
			break
		}
	}

	for offset := 0; ; offset += reconcilePageSize {
		envelopes, err := uc.envelopeRepo.ListByOwner(ctx, ownerID, reconcilePageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, e := range envelopes {
			if err := uc.checkEnvelope(ctx, e, report); err != nil {
				return nil, err
			}
		}

		if len(envelopes) < reconcilePageSize {
			break
		}
	}

	return report, nil
}

// checkWallet folds the wallet's active transactions through the balance rules.
func (uc *ReconciliationUseCase) checkWallet(ctx context.Context, w *domain.Wallet, report *ReconciliationReport) error {
	rows, err := uc.transactionRepo.ListActiveByWallet(ctx, w.ID)
	if err != nil {
		return err
	}

	folded := domain.Balances{Real: decimal.Zero, Projected: decimal.Zero}
	for _, row := range rows {
		if folded, err = domain.Apply(folded, row.Movement()); err != nil {
			return err
		}
	}

	report.WalletsChecked++
	report.add(domain.AggregateTypeWallet, w.ID, "real_balance", w.RealBalance, folded.Real)
	report.add(domain.AggregateTypeWallet, w.ID, "projected_balance", w.ProjectedBalance, folded.Projected)

	return nil
}

func (uc *ReconciliationUseCase) checkEnvelope(ctx context.Context, e *domain.Envelope, report *ReconciliationReport) error {
	rows, err := uc.transactionRepo.ListActiveByEnvelope(ctx, e.ID)
	if err != nil {
		return err
	}

	spent := decimal.Zero
	for _, row := range rows {
		if row.Type == domain.TransactionTypeGasto {
			spent = spent.Add(row.Amount)
		}
	}

	allocations, err := uc.allocationRepo.ListByEnvelope(ctx, e.ID)
	if err != nil {
		return err
	}

	allocated := decimal.Zero
	for _, a := range allocations {
		allocated = allocated.Add(a.Amount)
	}

	report.EnvelopesChecked++
	report.add(domain.AggregateTypeEnvelope, e.ID, "spent", e.Spent, spent)
	report.add(domain.AggregateTypeEnvelope, e.ID, "budget_assigned", e.BudgetAssigned, allocated)

	return nil
}

func (r *ReconciliationReport) add(resourceType, id, field string, recorded, calculated decimal.Decimal) {
	if recorded.Equal(calculated) {
		return
	}
	r.Discrepancies = append(r.Discrepancies, Discrepancy{
		ResourceType: resourceType,
		ResourceID:   id,
		Field:        field,
		Recorded:     recorded,
		Calculated:   calculated,
		Difference:   recorded.Sub(calculated),
	})
}
