package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType encodes the direction of a money movement.
type TransactionType string

const (
	TransactionTypeGasto         TransactionType = "GASTO"
	TransactionTypeIngreso       TransactionType = "INGRESO"
	TransactionTypeTransferencia TransactionType = "TRANSFERENCIA"
	TransactionTypeDeposito      TransactionType = "DEPOSITO"
	TransactionTypePagoTC        TransactionType = "PAGO_TC"
	TransactionTypeAjuste        TransactionType = "AJUSTE"
)

// IsValid reports whether t belongs to the closed set.
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeGasto, TransactionTypeIngreso, TransactionTypeTransferencia,
		TransactionTypeDeposito, TransactionTypePagoTC, TransactionTypeAjuste:
		return true
	}
	return false
}

// AdjustmentDirection gives an AJUSTE its sign.
type AdjustmentDirection string

const (
	AdjustmentIn  AdjustmentDirection = "in"
	AdjustmentOut AdjustmentDirection = "out"
)

// IsValid reports whether d is one of the two directions.
func (d AdjustmentDirection) IsValid() bool {
	return d == AdjustmentIn || d == AdjustmentOut
}

// CardPaymentDetail describes a PAGO_TC row.
type CardPaymentDetail struct {
	CardWalletID string `json:"card_wallet_id"`
	Statement    string `json:"statement,omitempty"`
}

// ConversionDetail records a currency conversion done outside the ledger.
type ConversionDetail struct {
	FromCurrency string          `json:"from_currency"`
	FromAmount   decimal.Decimal `json:"from_amount"`
	Rate         decimal.Decimal `json:"rate"`
}

// AutoIncreaseDetail records a budget raise made while creating an expense.
type AutoIncreaseDetail struct {
	EnvelopeID     string          `json:"envelope_id"`
	Increase       decimal.Decimal `json:"increase"`
	PreviousBudget decimal.Decimal `json:"previous_budget"`
	NewBudget      decimal.Decimal `json:"new_budget"`
}

// Transaction is a soft-deletable record of one money movement on one wallet.
// Amount is always positive.
type Transaction struct {
	ID                  string
	Amount              decimal.Decimal
	CurrencyID          string
	WalletID            string
	Type                TransactionType
	Direction           AdjustmentDirection
	OwnerID             string
	Description         string
	Date                time.Time
	EnvelopeID          *string
	CategoryID          *string
	SubcategoryID       *string
	DestinationWalletID *string
	CardPayment         *CardPaymentDetail
	Conversion          *ConversionDetail
	AutoIncrease        *AutoIncreaseDetail
	Version             int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// Movement returns the balance effect of the transaction.
func (t *Transaction) Movement() Movement {
	return Movement{Type: t.Type, Amount: t.Amount, Direction: t.Direction}
}

// IsEnvelopeExpense reports whether the row counts towards an envelope's spent.
func (t *Transaction) IsEnvelopeExpense() bool {
	return t.Type == TransactionTypeGasto && t.EnvelopeID != nil
}

// Validate checks the row-level invariants.
func (t *Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Type == TransactionTypeAjuste && !t.Direction.IsValid() {
		return ErrAdjustmentDirection
	}
	if t.Type != TransactionTypeAjuste && t.Direction != "" {
		return ErrAdjustmentDirection
	}
	if t.WalletID == "" {
		return ErrWalletNotFound
	}
	if t.OwnerID == "" {
		return ErrMissingOwner
	}
	return ValidateDescription(t.Description)
}

// TransactionPatch lists the mutable transaction fields. Type and wallet
// are fixed at creation.
type TransactionPatch struct {
	Amount          Optional[decimal.Decimal]
	Description     Optional[string]
	Date            Optional[time.Time]
	EnvelopeID      Optional[*string]
	CategoryID      Optional[*string]
	SubcategoryID   Optional[*string]
	ExpectedVersion *int64
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	OwnerID    string
	WalletID   *string
	EnvelopeID *string
	CategoryID *string
	Type       *TransactionType
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
