package handler

import (
	"context"
	"net/http"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
	PayCreditCard(ctx context.Context, input usecase.CardPaymentInput) (*usecase.TransferResult, error)
	TransferBudget(ctx context.Context, input usecase.BudgetTransferInput) (*usecase.BudgetTransferResult, error)
}

// TransferHandler handles money and budget movements.
type TransferHandler struct {
	transferUC TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// Create moves money between two wallets; either side may be UNDECLARED.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.transferUC.Transfer(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromUseCase(result))
}

// PayCard pays a credit card from another wallet.
func (h *TransferHandler) PayCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.CardPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transferUC.PayCreditCard(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromUseCase(result))
}

// MoveBudget moves assigned budget between envelopes.
func (h *TransferHandler) MoveBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.BudgetTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.transferUC.TransferBudget(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.BudgetTransferFromUseCase(result))
}
