package domain

import "github.com/shopspring/decimal"

// Balances is the pair of balances every wallet carries. Both move
// identically for every transaction type today.
type Balances struct {
	Real      decimal.Decimal
	Projected decimal.Decimal
}

// Movement is the part of a transaction the mutator needs.
type Movement struct {
	Type      TransactionType
	Amount    decimal.Decimal
	Direction AdjustmentDirection
}

// Delta returns the signed change the movement applies to a wallet.
func (m Movement) Delta() (decimal.Decimal, error) {
	switch m.Type {
	case TransactionTypeIngreso, TransactionTypeDeposito:
		return m.Amount, nil
	case TransactionTypeGasto, TransactionTypeTransferencia, TransactionTypePagoTC:
		return m.Amount.Neg(), nil
	case TransactionTypeAjuste:
		switch m.Direction {
		case AdjustmentIn:
			return m.Amount, nil
		case AdjustmentOut:
			return m.Amount.Neg(), nil
		}
		return decimal.Zero, ErrAdjustmentDirection
	}
	return decimal.Zero, ErrInvalidTransactionType
}

// Apply adds the movement to b. Results may be negative.
func Apply(b Balances, m Movement) (Balances, error) {
	delta, err := m.Delta()
	if err != nil {
		return b, err
	}
	return Balances{
		Real:      b.Real.Add(delta),
		Projected: b.Projected.Add(delta),
	}, nil
}

// Revert removes the movement from b. Revert(Apply(b, m), m) == b.
func Revert(b Balances, m Movement) (Balances, error) {
	delta, err := m.Delta()
	if err != nil {
		return b, err
	}
	return Balances{
		Real:      b.Real.Sub(delta),
		Projected: b.Projected.Sub(delta),
	}, nil
}
