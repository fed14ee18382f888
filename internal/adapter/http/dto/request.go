package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// UndeclaredWallet is the wire spelling of a transfer endpoint with no wallet.
const UndeclaredWallet = "UNDECLARED"

// ParseWalletRef reads a transfer endpoint.
func ParseWalletRef(s string) (domain.WalletRef, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return domain.WalletRef{}, domain.ErrInvalidWalletRef
	case strings.EqualFold(s, UndeclaredWallet):
		return domain.Undeclared(), nil
	default:
		return domain.RealWallet(s), nil
	}
}

// CreateWalletRequest represents a request to create a wallet.
type CreateWalletRequest struct {
	Name           string           `json:"name"`
	Type           string           `json:"type"`
	CurrencyID     string           `json:"currency_id"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	InterestRate   *decimal.Decimal `json:"interest_rate,omitempty"`
	Shared         bool             `json:"shared"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateWalletRequest) ToUseCaseInput(ownerID string) usecase.CreateWalletInput {
	return usecase.CreateWalletInput{
		OwnerID:        ownerID,
		Name:           r.Name,
		Type:           domain.WalletType(r.Type),
		CurrencyID:     r.CurrencyID,
		InitialBalance: r.InitialBalance,
		InterestRate:   r.InterestRate,
		Shared:         r.Shared,
	}
}

// UpdateWalletRequest is a partial wallet update. Balances are not patchable.
type UpdateWalletRequest struct {
	Name            *string                   `json:"name"`
	InterestRate    Nullable[decimal.Decimal] `json:"interest_rate"`
	Shared          *bool                     `json:"shared"`
	ExpectedVersion *int64                    `json:"expected_version"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateWalletRequest) ToUseCaseInput(ownerID, id string) usecase.UpdateWalletInput {
	return usecase.UpdateWalletInput{
		ID:      id,
		OwnerID: ownerID,
		Patch: domain.WalletPatch{
			Name:            optional(r.Name),
			InterestRate:    r.InterestRate.Optional(),
			Shared:          optional(r.Shared),
			ExpectedVersion: r.ExpectedVersion,
		},
	}
}

// AdjustWalletRequest sets a wallet balance to an observed value.
type AdjustWalletRequest struct {
	TargetBalance decimal.Decimal `json:"target_balance"`
	Description   string          `json:"description"`
}

// ToUseCaseInput converts to use case input.
func (r *AdjustWalletRequest) ToUseCaseInput(ownerID, id string) usecase.AdjustWalletInput {
	return usecase.AdjustWalletInput{
		ID:          id,
		OwnerID:     ownerID,
		Target:      r.TargetBalance,
		Description: r.Description,
	}
}

// CreateEnvelopeRequest represents a request to create an envelope.
type CreateEnvelopeRequest struct {
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	CurrencyID      string          `json:"currency_id"`
	InitialBudget   decimal.Decimal `json:"initial_budget"`
	SourceWalletID  *string         `json:"source_wallet_id,omitempty"`
	Shared          bool            `json:"shared"`
	MaxParticipants int             `json:"max_participants"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEnvelopeRequest) ToUseCaseInput(ownerID string) usecase.CreateEnvelopeInput {
	return usecase.CreateEnvelopeInput{
		OwnerID:         ownerID,
		Name:            r.Name,
		Type:            domain.EnvelopeType(r.Type),
		CurrencyID:      r.CurrencyID,
		InitialBudget:   r.InitialBudget,
		SourceWalletID:  r.SourceWalletID,
		Shared:          r.Shared,
		MaxParticipants: r.MaxParticipants,
	}
}

// UpdateEnvelopeRequest is a partial envelope update.
type UpdateEnvelopeRequest struct {
	Name            *string          `json:"name"`
	Type            *string          `json:"type"`
	BudgetAssigned  *decimal.Decimal `json:"budget_assigned"`
	ExpectedVersion *int64           `json:"expected_version"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEnvelopeRequest) ToUseCaseInput(userID, id string) usecase.UpdateEnvelopeInput {
	patch := domain.EnvelopePatch{
		Name:            optional(r.Name),
		BudgetAssigned:  optional(r.BudgetAssigned),
		ExpectedVersion: r.ExpectedVersion,
	}
	if r.Type != nil {
		patch.Type = domain.Some(domain.EnvelopeType(*r.Type))
	}
	return usecase.UpdateEnvelopeInput{ID: id, UserID: userID, Patch: patch}
}

// BudgetChangeRequest raises or lowers an envelope's budget.
type BudgetChangeRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	WalletID *string         `json:"wallet_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *BudgetChangeRequest) ToUseCaseInput(userID, envelopeID string) usecase.BudgetChangeInput {
	return usecase.BudgetChangeInput{
		EnvelopeID: envelopeID,
		UserID:     userID,
		Amount:     r.Amount,
		WalletID:   r.WalletID,
	}
}

// LinkCategoriesRequest links categories to an envelope.
type LinkCategoriesRequest struct {
	CategoryIDs []string `json:"category_ids"`
}

// AddParticipantRequest joins a user to a shared envelope.
type AddParticipantRequest struct {
	UserID         string          `json:"user_id"`
	Role           string          `json:"role"`
	BudgetAssigned decimal.Decimal `json:"budget_assigned"`
}

// ToUseCaseInput converts to use case input.
func (r *AddParticipantRequest) ToUseCaseInput(userID, envelopeID string) usecase.AddParticipantInput {
	return usecase.AddParticipantInput{
		EnvelopeID:     envelopeID,
		UserID:         userID,
		ParticipantID:  r.UserID,
		Role:           domain.ParticipantRole(r.Role),
		BudgetAssigned: r.BudgetAssigned,
	}
}

// CreateTransactionRequest represents a request to record a transaction.
// Type is ignored by the expense and income endpoints.
type CreateTransactionRequest struct {
	WalletID             string                   `json:"wallet_id"`
	Type                 string                   `json:"type"`
	Direction            string                   `json:"direction,omitempty"`
	Amount               decimal.Decimal          `json:"amount"`
	Description          string                   `json:"description"`
	Date                 *time.Time               `json:"date,omitempty"`
	EnvelopeID           *string                  `json:"envelope_id,omitempty"`
	CategoryID           *string                  `json:"category_id,omitempty"`
	SubcategoryID        *string                  `json:"subcategory_id,omitempty"`
	Conversion           *domain.ConversionDetail `json:"conversion,omitempty"`
	AutoIncreaseEnvelope bool                     `json:"auto_increase_envelope"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransactionRequest) ToUseCaseInput(ownerID string) usecase.CreateTransactionInput {
	return usecase.CreateTransactionInput{
		OwnerID:              ownerID,
		WalletID:             r.WalletID,
		Type:                 domain.TransactionType(strings.ToUpper(r.Type)),
		Direction:            domain.AdjustmentDirection(r.Direction),
		Amount:               r.Amount,
		Description:          r.Description,
		Date:                 r.Date,
		EnvelopeID:           r.EnvelopeID,
		CategoryID:           r.CategoryID,
		SubcategoryID:        r.SubcategoryID,
		Conversion:           r.Conversion,
		AutoIncreaseEnvelope: r.AutoIncreaseEnvelope,
	}
}

// UpdateTransactionRequest is a partial transaction update. A null envelope,
// category or subcategory unlinks it.
type UpdateTransactionRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	Description     *string          `json:"description"`
	Date            *time.Time       `json:"date"`
	EnvelopeID      Nullable[string] `json:"envelope_id"`
	CategoryID      Nullable[string] `json:"category_id"`
	SubcategoryID   Nullable[string] `json:"subcategory_id"`
	ExpectedVersion *int64           `json:"expected_version"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateTransactionRequest) ToUseCaseInput(ownerID, id string) usecase.UpdateTransactionInput {
	return usecase.UpdateTransactionInput{
		ID:      id,
		OwnerID: ownerID,
		Patch: domain.TransactionPatch{
			Amount:          optional(r.Amount),
			Description:     optional(r.Description),
			Date:            optional(r.Date),
			EnvelopeID:      r.EnvelopeID.Optional(),
			CategoryID:      r.CategoryID.Optional(),
			SubcategoryID:   r.SubcategoryID.Optional(),
			ExpectedVersion: r.ExpectedVersion,
		},
	}
}

// TransferRequest moves money between wallets. Either side may be
// UNDECLARED.
type TransferRequest struct {
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	Date                *time.Time      `json:"date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput(ownerID string) (usecase.TransferInput, error) {
	source, err := ParseWalletRef(r.SourceWalletID)
	if err != nil {
		return usecase.TransferInput{}, err
	}
	destination, err := ParseWalletRef(r.DestinationWalletID)
	if err != nil {
		return usecase.TransferInput{}, err
	}
	return usecase.TransferInput{
		OwnerID:     ownerID,
		Source:      source,
		Destination: destination,
		Amount:      r.Amount,
		Description: r.Description,
		Date:        r.Date,
	}, nil
}

// CardPaymentRequest pays a credit card from another wallet.
type CardPaymentRequest struct {
	SourceWalletID string          `json:"source_wallet_id"`
	CardWalletID   string          `json:"card_wallet_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Statement      string          `json:"statement,omitempty"`
	Date           *time.Time      `json:"date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CardPaymentRequest) ToUseCaseInput(ownerID string) usecase.CardPaymentInput {
	return usecase.CardPaymentInput{
		OwnerID:        ownerID,
		SourceWalletID: r.SourceWalletID,
		CardWalletID:   r.CardWalletID,
		Amount:         r.Amount,
		Description:    r.Description,
		Statement:      r.Statement,
		Date:           r.Date,
	}
}

// BudgetTransferRequest moves budget between envelopes.
type BudgetTransferRequest struct {
	SourceEnvelopeID      string          `json:"source_envelope_id"`
	DestinationEnvelopeID string          `json:"destination_envelope_id"`
	Amount                decimal.Decimal `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *BudgetTransferRequest) ToUseCaseInput(userID string) usecase.BudgetTransferInput {
	return usecase.BudgetTransferInput{
		UserID:                userID,
		SourceEnvelopeID:      r.SourceEnvelopeID,
		DestinationEnvelopeID: r.DestinationEnvelopeID,
		Amount:                r.Amount,
	}
}

// NameRequest creates or renames a category or subcategory.
type NameRequest struct {
	Name string `json:"name"`
}

// PreferenceRequest updates the caller's preferences.
type PreferenceRequest struct {
	PrincipalCurrency string `json:"principal_currency"`
}
