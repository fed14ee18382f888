package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationType records why an envelope's budget changed.
type AllocationType string

const (
	AllocationInitial  AllocationType = "initial"
	AllocationIncrease AllocationType = "increase"
	AllocationDecrease AllocationType = "decrease"
	AllocationTransfer AllocationType = "transfer"
)

// BudgetAllocation is an append-only audit row. Amount is the signed change
// applied to the envelope's BudgetAssigned, so the rows of an envelope sum
// to its current budget.
type BudgetAllocation struct {
	ID         string
	EnvelopeID string
	WalletID   *string
	UserID     string
	Amount     decimal.Decimal
	CurrencyID string
	Type       AllocationType
	CreatedAt  time.Time
}

// UserPreference holds per-user settings consumed by the ledger.
type UserPreference struct {
	UserID            string
	PrincipalCurrency string
	UpdatedAt         time.Time
}
