package domain

import "github.com/shopspring/decimal"

// WarningType identifies an advisory warning.
type WarningType string

const (
	WarningOverspendEnvelope WarningType = "OVERSPEND_SOBRE"
	WarningNegativeWallet    WarningType = "NEGATIVE_WALLET"
)

const percentScale = 2

var hundred = decimal.NewFromInt(100)

// Warning is attached to a successful write. It never blocks one.
type Warning struct {
	Type    WarningType
	Message string
	Details WarningDetails
}

// WarningDetails carries the numbers behind a warning. Envelope fields are
// set for OVERSPEND_SOBRE, wallet fields for NEGATIVE_WALLET.
type WarningDetails struct {
	BudgetAssigned *decimal.Decimal
	ProjectedSpent *decimal.Decimal
	EnvelopeName   string
	OldBalance     *decimal.Decimal
	NewBalance     *decimal.Decimal
	OveragePercent decimal.Decimal
}

// ComputeWarning evaluates the overspend rules for a write about to happen.
// Only expenses linked to an envelope are checked. The wallet check runs
// only when the envelope check did not fire.
func ComputeWarning(txType TransactionType, amount decimal.Decimal, wallet *Wallet, envelope *Envelope) *Warning {
	if txType != TransactionTypeGasto || envelope == nil {
		return nil
	}

	if w := envelopeOverspend(amount, envelope); w != nil {
		return w
	}

	if wallet == nil {
		return nil
	}

	return walletNegative(amount, wallet)
}

func envelopeOverspend(amount decimal.Decimal, envelope *Envelope) *Warning {
	budget := envelope.BudgetAssigned
	projected := envelope.Spent.Add(amount)

	if !budget.IsPositive() || !projected.GreaterThan(budget) {
		return nil
	}

	percent := projected.Sub(budget).Div(budget).Mul(hundred).Round(percentScale)

	return &Warning{
		Type:    WarningOverspendEnvelope,
		Message: "expense exceeds the budget of envelope " + envelope.Name,
		Details: WarningDetails{
			BudgetAssigned: &budget,
			ProjectedSpent: &projected,
			EnvelopeName:   envelope.Name,
			OveragePercent: percent,
		},
	}
}

func walletNegative(amount decimal.Decimal, wallet *Wallet) *Warning {
	oldBalance := wallet.RealBalance
	newBalance := oldBalance.Sub(amount)

	if !newBalance.IsNegative() {
		return nil
	}

	percent := decimal.Zero
	if oldBalance.IsPositive() {
		percent = newBalance.Abs().Div(oldBalance).Mul(hundred).Round(percentScale)
	}

	return &Warning{
		Type:    WarningNegativeWallet,
		Message: "expense leaves wallet " + wallet.Name + " with a negative balance",
		Details: WarningDetails{
			OldBalance:     &oldBalance,
			NewBalance:     &newBalance,
			OveragePercent: percent,
		},
	}
}
