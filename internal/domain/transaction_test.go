package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTransaction_Validate(t *testing.T) {
	base := func() Transaction {
		return Transaction{
			Amount:   decimal.NewFromInt(10),
			WalletID: "w1",
			OwnerID:  "u1",
			Type:     TransactionTypeGasto,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{name: "valid expense", mutate: func(*Transaction) {}},
		{name: "zero amount", mutate: func(tx *Transaction) { tx.Amount = decimal.Zero }, wantErr: ErrInvalidAmount},
		{name: "negative amount", mutate: func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, wantErr: ErrInvalidAmount},
		{name: "unknown type", mutate: func(tx *Transaction) { tx.Type = "OTHER" }, wantErr: ErrInvalidTransactionType},
		{name: "adjustment needs direction", mutate: func(tx *Transaction) { tx.Type = TransactionTypeAjuste }, wantErr: ErrAdjustmentDirection},
		{name: "direction only on adjustments", mutate: func(tx *Transaction) { tx.Direction = AdjustmentIn }, wantErr: ErrAdjustmentDirection},
		{name: "missing owner", mutate: func(tx *Transaction) { tx.OwnerID = "" }, wantErr: ErrMissingOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := base()
			tt.mutate(&tx)

			err := tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTransaction_IsEnvelopeExpense(t *testing.T) {
	env := "e1"

	if (&Transaction{Type: TransactionTypeGasto}).IsEnvelopeExpense() {
		t.Error("expense without envelope is not tracked")
	}
	if (&Transaction{Type: TransactionTypeIngreso, EnvelopeID: &env}).IsEnvelopeExpense() {
		t.Error("income is not tracked")
	}
	if !(&Transaction{Type: TransactionTypeGasto, EnvelopeID: &env}).IsEnvelopeExpense() {
		t.Error("expense with envelope is tracked")
	}
}

func TestWalletRef(t *testing.T) {
	if id, ok := RealWallet("w1").ID(); !ok || id != "w1" {
		t.Errorf("expected real wallet w1, got %q %v", id, ok)
	}
	if !Undeclared().IsUndeclared() {
		t.Error("expected undeclared")
	}
	if Undeclared().String() != "UNDECLARED" {
		t.Errorf("unexpected string %q", Undeclared().String())
	}
}

func TestWallet_CanDelete(t *testing.T) {
	w := &Wallet{RealBalance: decimal.RequireFromString("0.01")}
	if !errors.Is(w.CanDelete(), ErrWalletBalanceNotZero) {
		t.Error("expected balance rule error")
	}
	if KindOf(w.CanDelete()) != KindBusinessRule {
		t.Error("expected business rule kind")
	}

	w.RealBalance = decimal.Zero
	if err := w.CanDelete(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
