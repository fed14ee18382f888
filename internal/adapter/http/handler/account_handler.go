package handler

import (
	"context"
	"net/http"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// PreferenceService defines the behavior needed by AccountHandler.
type PreferenceService interface {
	GetPreference(ctx context.Context, userID string) (*domain.UserPreference, error)
	SetPrincipalCurrency(ctx context.Context, userID, currency string) (*domain.UserPreference, error)
}

// ReconciliationService defines the behavior needed by AccountHandler.
type ReconciliationService interface {
	Reconcile(ctx context.Context, ownerID string) (*usecase.ReconciliationReport, error)
}

// AccountHandler serves the caller's own settings and ledger checks.
type AccountHandler struct {
	preferenceUC     PreferenceService
	reconciliationUC ReconciliationService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(preferenceUC PreferenceService, reconciliationUC ReconciliationService) *AccountHandler {
	return &AccountHandler{preferenceUC: preferenceUC, reconciliationUC: reconciliationUC}
}

// GetPreferences returns the caller's preferences.
func (h *AccountHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	pref, err := h.preferenceUC.GetPreference(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PreferenceFromDomain(pref))
}

// PutPreferences stores the caller's principal currency.
func (h *AccountHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.PreferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pref, err := h.preferenceUC.SetPrincipalCurrency(r.Context(), userID, req.PrincipalCurrency)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PreferenceFromDomain(pref))
}

// Reconcile recomputes every stored aggregate of the caller and reports
// mismatches.
func (h *AccountHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	report, err := h.reconciliationUC.Reconcile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}
