package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletType is the closed set of wallet kinds.
type WalletType string

const (
	WalletTypeDebit          WalletType = "debit"
	WalletTypeCredit         WalletType = "credit"
	WalletTypeCash           WalletType = "cash"
	WalletTypeSavings        WalletType = "savings"
	WalletTypeInvestment     WalletType = "investment"
	WalletTypeLoan           WalletType = "loan"
	WalletTypeCurrentAccount WalletType = "current_account"
	WalletTypeCreditLine     WalletType = "credit_line"
	WalletTypeOverdraft      WalletType = "overdraft"
)

var validWalletTypes = map[WalletType]bool{
	WalletTypeDebit:          true,
	WalletTypeCredit:         true,
	WalletTypeCash:           true,
	WalletTypeSavings:        true,
	WalletTypeInvestment:     true,
	WalletTypeLoan:           true,
	WalletTypeCurrentAccount: true,
	WalletTypeCreditLine:     true,
	WalletTypeOverdraft:      true,
}

// IsValid reports whether t belongs to the closed set.
func (t WalletType) IsValid() bool {
	return validWalletTypes[t]
}

// IsCreditCard reports whether the wallet can receive a card payment.
func (t WalletType) IsCreditCard() bool {
	return t == WalletTypeCredit || t == WalletTypeCreditLine
}

// Wallet holds real money.
type Wallet struct {
	ID               string
	Name             string
	Type             WalletType
	CurrencyID       string
	RealBalance      decimal.Decimal
	ProjectedBalance decimal.Decimal
	InterestRate     *decimal.Decimal
	Shared           bool
	OwnerID          string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Balances returns the wallet's current balance pair.
func (w *Wallet) Balances() Balances {
	return Balances{Real: w.RealBalance, Projected: w.ProjectedBalance}
}

// SetBalances stores a balance pair produced by the mutator.
func (w *Wallet) SetBalances(b Balances) {
	w.RealBalance = b.Real
	w.ProjectedBalance = b.Projected
}

// OwnedBy reports whether userID owns the wallet.
func (w *Wallet) OwnedBy(userID string) bool {
	return w.OwnerID == userID
}

// CanDelete enforces the zero-balance rule for soft deletion.
func (w *Wallet) CanDelete() error {
	if !w.RealBalance.IsZero() {
		return ErrWalletBalanceNotZero
	}
	return nil
}

// WalletPatch lists the mutable wallet fields.
type WalletPatch struct {
	Name            Optional[string]
	InterestRate    Optional[*decimal.Decimal]
	Shared          Optional[bool]
	ExpectedVersion *int64
}
