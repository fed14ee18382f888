package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries a machine readable code and a human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK wraps data in a successful envelope.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail builds a failed envelope.
func Fail(code, message string) Response {
	return Response{Error: &ErrorBody{Code: code, Message: message}}
}

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Type             string           `json:"type"`
	CurrencyID       string           `json:"currency_id"`
	RealBalance      decimal.Decimal  `json:"real_balance"`
	ProjectedBalance decimal.Decimal  `json:"projected_balance"`
	InterestRate     *decimal.Decimal `json:"interest_rate,omitempty"`
	Shared           bool             `json:"shared"`
	OwnerID          string           `json:"owner_id"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		ID:               w.ID,
		Name:             w.Name,
		Type:             string(w.Type),
		CurrencyID:       w.CurrencyID,
		RealBalance:      w.RealBalance,
		ProjectedBalance: w.ProjectedBalance,
		InterestRate:     w.InterestRate,
		Shared:           w.Shared,
		OwnerID:          w.OwnerID,
		Version:          w.Version,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

// WalletsFromDomain converts domain wallets to responses.
func WalletsFromDomain(wallets []*domain.Wallet) []*WalletResponse {
	return mapAll(wallets, WalletFromDomain)
}

// EnvelopeResponse represents an envelope in API responses.
type EnvelopeResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	CurrencyID      string          `json:"currency_id"`
	BudgetAssigned  decimal.Decimal `json:"budget_assigned"`
	Spent           decimal.Decimal `json:"spent"`
	Available       decimal.Decimal `json:"available"`
	Shared          bool            `json:"shared"`
	MaxParticipants int             `json:"max_participants"`
	OwnerID         string          `json:"owner_id"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// EnvelopeFromDomain converts a domain envelope to a response.
func EnvelopeFromDomain(e *domain.Envelope) *EnvelopeResponse {
	return &EnvelopeResponse{
		ID:              e.ID,
		Name:            e.Name,
		Type:            string(e.Type),
		CurrencyID:      e.CurrencyID,
		BudgetAssigned:  e.BudgetAssigned,
		Spent:           e.Spent,
		Available:       e.BudgetAssigned.Sub(e.Spent),
		Shared:          e.Shared,
		MaxParticipants: e.MaxParticipants,
		OwnerID:         e.OwnerID,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

// EnvelopesFromDomain converts domain envelopes to responses.
func EnvelopesFromDomain(envelopes []*domain.Envelope) []*EnvelopeResponse {
	return mapAll(envelopes, EnvelopeFromDomain)
}

// ParticipantResponse represents a member of a shared envelope.
type ParticipantResponse struct {
	EnvelopeID     string          `json:"envelope_id"`
	UserID         string          `json:"user_id"`
	Role           string          `json:"role"`
	BudgetAssigned decimal.Decimal `json:"budget_assigned"`
	Spent          decimal.Decimal `json:"spent"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ParticipantFromDomain converts a participant to a response.
func ParticipantFromDomain(p *domain.Participant) *ParticipantResponse {
	return &ParticipantResponse{
		EnvelopeID:     p.EnvelopeID,
		UserID:         p.UserID,
		Role:           string(p.Role),
		BudgetAssigned: p.BudgetAssigned,
		Spent:          p.Spent,
		CreatedAt:      p.CreatedAt,
	}
}

// ParticipantsFromDomain converts participants to responses.
func ParticipantsFromDomain(participants []*domain.Participant) []*ParticipantResponse {
	return mapAll(participants, ParticipantFromDomain)
}

// AllocationResponse represents one budget movement of an envelope.
type AllocationResponse struct {
	ID         string          `json:"id"`
	EnvelopeID string          `json:"envelope_id"`
	WalletID   *string         `json:"wallet_id,omitempty"`
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	CurrencyID string          `json:"currency_id"`
	Type       string          `json:"type"`
	CreatedAt  time.Time       `json:"created_at"`
}

// AllocationFromDomain converts an allocation to a response.
func AllocationFromDomain(a *domain.BudgetAllocation) *AllocationResponse {
	return &AllocationResponse{
		ID:         a.ID,
		EnvelopeID: a.EnvelopeID,
		WalletID:   a.WalletID,
		UserID:     a.UserID,
		Amount:     a.Amount,
		CurrencyID: a.CurrencyID,
		Type:       string(a.Type),
		CreatedAt:  a.CreatedAt,
	}
}

// AllocationsFromDomain converts allocations to responses.
func AllocationsFromDomain(allocations []*domain.BudgetAllocation) []*AllocationResponse {
	return mapAll(allocations, AllocationFromDomain)
}

// CategoryResponse represents a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryFromDomain converts a category to a response.
func CategoryFromDomain(c *domain.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		OwnerID:   c.OwnerID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CategoriesFromDomain converts categories to responses.
func CategoriesFromDomain(categories []*domain.Category) []*CategoryResponse {
	return mapAll(categories, CategoryFromDomain)
}

// SubcategoryResponse represents a subcategory.
type SubcategoryResponse struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	Name       string    `json:"name"`
	OwnerID    string    `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SubcategoryFromDomain converts a subcategory to a response.
func SubcategoryFromDomain(s *domain.Subcategory) *SubcategoryResponse {
	return &SubcategoryResponse{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Name:       s.Name,
		OwnerID:    s.OwnerID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// SubcategoriesFromDomain converts subcategories to responses.
func SubcategoriesFromDomain(subs []*domain.Subcategory) []*SubcategoryResponse {
	return mapAll(subs, SubcategoryFromDomain)
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                  string                     `json:"id"`
	Type                string                     `json:"type"`
	Direction           string                     `json:"direction,omitempty"`
	Amount              decimal.Decimal            `json:"amount"`
	CurrencyID          string                     `json:"currency_id"`
	WalletID            string                     `json:"wallet_id"`
	Description         string                     `json:"description"`
	Date                time.Time                  `json:"date"`
	EnvelopeID          *string                    `json:"envelope_id,omitempty"`
	CategoryID          *string                    `json:"category_id,omitempty"`
	SubcategoryID       *string                    `json:"subcategory_id,omitempty"`
	DestinationWalletID *string                    `json:"destination_wallet_id,omitempty"`
	CardPayment         *domain.CardPaymentDetail  `json:"card_payment,omitempty"`
	Conversion          *domain.ConversionDetail   `json:"conversion,omitempty"`
	AutoIncrease        *domain.AutoIncreaseDetail `json:"auto_increase,omitempty"`
	OwnerID             string                     `json:"owner_id"`
	Version             int64                      `json:"version"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	if t == nil {
		return nil
	}
	return &TransactionResponse{
		ID:                  t.ID,
		Type:                string(t.Type),
		Direction:           string(t.Direction),
		Amount:              t.Amount,
		CurrencyID:          t.CurrencyID,
		WalletID:            t.WalletID,
		Description:         t.Description,
		Date:                t.Date,
		EnvelopeID:          t.EnvelopeID,
		CategoryID:          t.CategoryID,
		SubcategoryID:       t.SubcategoryID,
		DestinationWalletID: t.DestinationWalletID,
		CardPayment:         t.CardPayment,
		Conversion:          t.Conversion,
		AutoIncrease:        t.AutoIncrease,
		OwnerID:             t.OwnerID,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	return mapAll(transactions, TransactionFromDomain)
}

// WarningResponse is the advisory attached to a successful write.
type WarningResponse struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Details WarningDetailsResponse `json:"details"`
}

// WarningDetailsResponse carries the figures behind a warning. Keys follow
// the budget domain vocabulary shared with existing clients.
type WarningDetailsResponse struct {
	BudgetAssigned *decimal.Decimal `json:"presupuestoAsignado,omitempty"`
	ProjectedSpent *decimal.Decimal `json:"gastoProyectado,omitempty"`
	EnvelopeName   string           `json:"nombreSobre,omitempty"`
	OveragePercent decimal.Decimal  `json:"porcentajeExceso"`
	OldBalance     *decimal.Decimal `json:"balanceAnterior,omitempty"`
	NewBalance     *decimal.Decimal `json:"balanceNuevo,omitempty"`
}

// WarningFromDomain converts a warning; nil stays nil.
func WarningFromDomain(w *domain.Warning) *WarningResponse {
	if w == nil {
		return nil
	}
	return &WarningResponse{
		Type:    string(w.Type),
		Message: w.Message,
		Details: WarningDetailsResponse{
			BudgetAssigned: w.Details.BudgetAssigned,
			ProjectedSpent: w.Details.ProjectedSpent,
			EnvelopeName:   w.Details.EnvelopeName,
			OveragePercent: w.Details.OveragePercent,
			OldBalance:     w.Details.OldBalance,
			NewBalance:     w.Details.NewBalance,
		},
	}
}

// TransactionResultResponse is a written transaction plus its warning.
type TransactionResultResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Warning     *WarningResponse     `json:"warning,omitempty"`
}

// TransactionResultFromUseCase converts a use case result.
func TransactionResultFromUseCase(r *usecase.TransactionResult) *TransactionResultResponse {
	return &TransactionResultResponse{
		Transaction: TransactionFromDomain(r.Transaction),
		Warning:     WarningFromDomain(r.Warning),
	}
}

// AdjustResultResponse is the wallet after an adjustment.
type AdjustResultResponse struct {
	Wallet      *WalletResponse      `json:"wallet"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// AdjustResultFromUseCase converts a use case result.
func AdjustResultFromUseCase(r *usecase.AdjustResult) *AdjustResultResponse {
	return &AdjustResultResponse{
		Wallet:      WalletFromDomain(r.Wallet),
		Transaction: TransactionFromDomain(r.Transaction),
	}
}

// TransferResponse describes the rows a transfer wrote.
type TransferResponse struct {
	SourceWalletID      string               `json:"source_wallet_id"`
	DestinationWalletID string               `json:"destination_wallet_id"`
	Amount              decimal.Decimal      `json:"amount"`
	CurrencyID          string               `json:"currency_id"`
	Debit               *TransactionResponse `json:"debit,omitempty"`
	Credit              *TransactionResponse `json:"credit,omitempty"`
}

// TransferFromUseCase converts a use case result. Undeclared endpoints are
// rendered as UNDECLARED.
func TransferFromUseCase(r *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		SourceWalletID:      r.Source.String(),
		DestinationWalletID: r.Destination.String(),
		Amount:              r.Amount,
		CurrencyID:          r.CurrencyID,
		Debit:               TransactionFromDomain(r.Debit),
		Credit:              TransactionFromDomain(r.Credit),
	}
}

// BudgetTransferResponse holds both envelopes after a budget move.
type BudgetTransferResponse struct {
	Source      *EnvelopeResponse `json:"source"`
	Destination *EnvelopeResponse `json:"destination"`
	Amount      decimal.Decimal   `json:"amount"`
}

// BudgetTransferFromUseCase converts a use case result.
func BudgetTransferFromUseCase(r *usecase.BudgetTransferResult) *BudgetTransferResponse {
	return &BudgetTransferResponse{
		Source:      EnvelopeFromDomain(r.Source),
		Destination: EnvelopeFromDomain(r.Destination),
		Amount:      r.Amount,
	}
}

// PreferenceResponse represents the caller's preferences.
type PreferenceResponse struct {
	UserID            string    `json:"user_id"`
	PrincipalCurrency string    `json:"principal_currency"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PreferenceFromDomain converts a preference to a response.
func PreferenceFromDomain(p *domain.UserPreference) *PreferenceResponse {
	return &PreferenceResponse{
		UserID:            p.UserID,
		PrincipalCurrency: p.PrincipalCurrency,
		UpdatedAt:         p.UpdatedAt,
	}
}

// DiscrepancyResponse is one mismatch found by reconciliation.
type DiscrepancyResponse struct {
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Field        string          `json:"field"`
	Recorded     decimal.Decimal `json:"recorded"`
	Calculated   decimal.Decimal `json:"calculated"`
	Difference   decimal.Decimal `json:"difference"`
}

// ReconciliationResponse is a reconciliation report.
type ReconciliationResponse struct {
	OwnerID          string                 `json:"owner_id"`
	Consistent       bool                   `json:"consistent"`
	WalletsChecked   int                    `json:"wallets_checked"`
	EnvelopesChecked int                    `json:"envelopes_checked"`
	Discrepancies    []*DiscrepancyResponse `json:"discrepancies"`
	CheckedAt        time.Time              `json:"checked_at"`
}

// ReconciliationFromUseCase converts a report.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	out := &ReconciliationResponse{
		OwnerID:          r.OwnerID,
		Consistent:       r.IsConsistent(),
		WalletsChecked:   r.WalletsChecked,
		EnvelopesChecked: r.EnvelopesChecked,
		Discrepancies:    make([]*DiscrepancyResponse, 0, len(r.Discrepancies)),
		CheckedAt:        r.CheckedAt,
	}
	for _, d := range r.Discrepancies {
		out.Discrepancies = append(out.Discrepancies, &DiscrepancyResponse{
			ResourceType: d.ResourceType,
			ResourceID:   d.ResourceID,
			Field:        d.Field,
			Recorded:     d.Recorded,
			Calculated:   d.Calculated,
			Difference:   d.Difference,
		})
	}
	return out
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func mapAll[S any, T any](in []S, fn func(S) T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
