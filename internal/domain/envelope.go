package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EnvelopeType is the closed set of envelope kinds.
type EnvelopeType string

const (
	EnvelopeTypeExpense EnvelopeType = "expense"
	EnvelopeTypeSavings EnvelopeType = "savings"
	EnvelopeTypeDebt    EnvelopeType = "debt"
)

// IsValid reports whether t belongs to the closed set.
func (t EnvelopeType) IsValid() bool {
	switch t {
	case EnvelopeTypeExpense, EnvelopeTypeSavings, EnvelopeTypeDebt:
		return true
	}
	return false
}

// Envelope is a virtual budget drawn from wallets.
type Envelope struct {
	ID              string
	Name            string
	Type            EnvelopeType
	CurrencyID      string
	BudgetAssigned  decimal.Decimal
	Spent           decimal.Decimal
	Shared          bool
	MaxParticipants int
	OwnerID         string
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Remaining is the unspent part of the budget, possibly negative.
func (e *Envelope) Remaining() decimal.Decimal {
	return e.BudgetAssigned.Sub(e.Spent)
}

// EnvelopePatch lists the mutable envelope fields.
type EnvelopePatch struct {
	Name            Optional[string]
	Type            Optional[EnvelopeType]
	BudgetAssigned  Optional[decimal.Decimal]
	ExpectedVersion *int64
}

// ParticipantRole is a participant's access level in a shared envelope.
type ParticipantRole string

const (
	RoleOwner       ParticipantRole = "owner"
	RoleAdmin       ParticipantRole = "admin"
	RoleContributor ParticipantRole = "contributor"
	RoleViewer      ParticipantRole = "viewer"
)

// IsValid reports whether r belongs to the closed set.
func (r ParticipantRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleContributor, RoleViewer:
		return true
	}
	return false
}

// CanSpend reports whether the role may link expenses to the envelope.
func (r ParticipantRole) CanSpend() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleContributor
}

// CanManage reports whether the role may change participants.
func (r ParticipantRole) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Participant tracks one user's share of a shared envelope.
// Spent is derived by the budget tracker, never written directly.
type Participant struct {
	EnvelopeID     string
	UserID         string
	Role           ParticipantRole
	BudgetAssigned decimal.Decimal
	Spent          decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserSpending is the GASTO total of one user on one envelope.
type UserSpending struct {
	UserID string
	Amount decimal.Decimal
}

// TotalSpending sums per-user spending.
func TotalSpending(rows []UserSpending) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}
