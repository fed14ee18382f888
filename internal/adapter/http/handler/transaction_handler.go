package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	Create(ctx context.Context, input usecase.CreateTransactionInput) (*usecase.TransactionResult, error)
	CreateExpense(ctx context.Context, input usecase.CreateTransactionInput) (*usecase.TransactionResult, error)
	CreateIncome(ctx context.Context, input usecase.CreateTransactionInput) (*usecase.TransactionResult, error)
	Update(ctx context.Context, input usecase.UpdateTransactionInput) (*usecase.TransactionResult, error)
	Delete(ctx context.Context, ownerID, id string) error
	Get(ctx context.Context, ownerID, id string) (*domain.Transaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	transactionUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// Create records a transaction of the type named in the body.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.transactionUC.Create)
}

// CreateExpense records a GASTO.
func (h *TransactionHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.transactionUC.CreateExpense)
}

// CreateIncome records an INGRESO.
func (h *TransactionHandler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.transactionUC.CreateIncome)
}

func (h *TransactionHandler) create(
	w http.ResponseWriter,
	r *http.Request,
	create func(context.Context, usecase.CreateTransactionInput) (*usecase.TransactionResult, error),
) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := create(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionResultFromUseCase(result))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	transaction, err := h.transactionUC.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(transaction))
}

// List lists the caller's transactions. Supported filters: wallet_id,
// envelope_id, category_id, type, from, to.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.OwnerID = userID

	transactions, err := h.transactionUC.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
		Items:  dto.TransactionsFromDomain(transactions),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Update applies a partial update and returns the recomputed warning.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transactionUC.Update(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionResultFromUseCase(result))
}

// Delete soft deletes a transaction and reverts its balance effect.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.transactionUC.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}

var errInvalidDate = &domain.Error{Kind: domain.KindValidation, Code: "INVALID_DATE", Message: "dates must be RFC 3339 or YYYY-MM-DD"}

func parseTransactionFilter(r *http.Request) (domain.TransactionFilter, error) {
	q := r.URL.Query()
	limit, offset := pagination(r)

	filter := domain.TransactionFilter{
		WalletID:   queryPtr(q.Get("wallet_id")),
		EnvelopeID: queryPtr(q.Get("envelope_id")),
		CategoryID: queryPtr(q.Get("category_id")),
		Limit:      limit,
		Offset:     offset,
	}

	if raw := q.Get("type"); raw != "" {
		txType := domain.TransactionType(strings.ToUpper(raw))
		if !txType.IsValid() {
			return filter, domain.ErrInvalidTransactionType
		}
		filter.Type = &txType
	}

	var err error
	if filter.From, err = parseDate(q.Get("from")); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate(q.Get("to")); err != nil {
		return filter, err
	}

	return filter, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidDate
}

func queryPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
