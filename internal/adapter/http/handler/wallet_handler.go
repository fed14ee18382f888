package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	CreateWallet(ctx context.Context, input usecase.CreateWalletInput) (*domain.Wallet, error)
	GetWallet(ctx context.Context, ownerID, id string) (*domain.Wallet, error)
	ListWallets(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Wallet, error)
	UpdateWallet(ctx context.Context, input usecase.UpdateWalletInput) (*domain.Wallet, error)
	DeleteWallet(ctx context.Context, ownerID, id string) error
	AdjustBalance(ctx context.Context, input usecase.AdjustWalletInput) (*usecase.AdjustResult, error)
	ListTransactions(ctx context.Context, ownerID, walletID string, limit, offset int) ([]*domain.Transaction, error)
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	walletUC WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC}
}

// Create creates a new wallet.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.CreateWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.walletUC.CreateWallet(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.WalletFromDomain(wallet))
}

// Get retrieves a wallet by ID.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	wallet, err := h.walletUC.GetWallet(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// List lists the caller's wallets.
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	wallets, err := h.walletUC.ListWallets(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.WalletResponse]{
		Items:  dto.WalletsFromDomain(wallets),
		Limit:  limit,
		Offset: offset,
	})
}

// Update applies a partial update.
func (h *WalletHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wallet, err := h.walletUC.UpdateWallet(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// Delete soft deletes a wallet with zero balance.
func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.walletUC.DeleteWallet(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}

// Adjust sets the wallet balance to an observed value.
func (h *WalletHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.AdjustWalletRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.walletUC.AdjustBalance(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AdjustResultFromUseCase(result))
}

// Transactions lists the wallet's transactions, newest first.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	transactions, err := h.walletUC.ListTransactions(r.Context(), userID, chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.TransactionResponse]{
		Items:  dto.TransactionsFromDomain(transactions),
		Limit:  limit,
		Offset: offset,
	})
}
