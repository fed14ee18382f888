package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// EnvelopeService defines the behavior needed by EnvelopeHandler.
type EnvelopeService interface {
	CreateEnvelope(ctx context.Context, input usecase.CreateEnvelopeInput) (*domain.Envelope, error)
	GetEnvelope(ctx context.Context, userID, id string) (*domain.Envelope, error)
	ListEnvelopes(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Envelope, error)
	UpdateEnvelope(ctx context.Context, input usecase.UpdateEnvelopeInput) (*domain.Envelope, error)
	DeleteEnvelope(ctx context.Context, userID, id string) error
	IncreaseBudget(ctx context.Context, input usecase.BudgetChangeInput) (*domain.Envelope, error)
	DecreaseBudget(ctx context.Context, input usecase.BudgetChangeInput) (*domain.Envelope, error)
	LinkCategories(ctx context.Context, userID, envelopeID string, categoryIDs []string) ([]*domain.Category, error)
	Categories(ctx context.Context, userID, envelopeID string) ([]*domain.Category, error)
	Allocations(ctx context.Context, userID, envelopeID string) ([]*domain.BudgetAllocation, error)
	Participants(ctx context.Context, userID, envelopeID string) ([]*domain.Participant, error)
	AddParticipant(ctx context.Context, input usecase.AddParticipantInput) (*domain.Participant, error)
	RemoveParticipant(ctx context.Context, userID, envelopeID, participantID string) error
	Recompute(ctx context.Context, userID, envelopeID string) (*domain.Envelope, error)
}

// EnvelopeHandler handles envelope-related HTTP requests.
type EnvelopeHandler struct {
	envelopeUC EnvelopeService
}

// NewEnvelopeHandler creates a new EnvelopeHandler.
func NewEnvelopeHandler(envelopeUC EnvelopeService) *EnvelopeHandler {
	return &EnvelopeHandler{envelopeUC: envelopeUC}
}

// Create creates a new envelope.
func (h *EnvelopeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.CreateEnvelopeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	envelope, err := h.envelopeUC.CreateEnvelope(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.EnvelopeFromDomain(envelope))
}

// Get retrieves an envelope by ID.
func (h *EnvelopeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	envelope, err := h.envelopeUC.GetEnvelope(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnvelopeFromDomain(envelope))
}

// List lists the caller's envelopes.
func (h *EnvelopeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	envelopes, err := h.envelopeUC.ListEnvelopes(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.EnvelopeResponse]{
		Items:  dto.EnvelopesFromDomain(envelopes),
		Limit:  limit,
		Offset: offset,
	})
}

// Update applies a partial update.
func (h *EnvelopeHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateEnvelopeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	envelope, err := h.envelopeUC.UpdateEnvelope(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnvelopeFromDomain(envelope))
}

// Delete soft deletes an envelope.
func (h *EnvelopeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.envelopeUC.DeleteEnvelope(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: id, Deleted: true})
}

// IncreaseBudget raises the assigned budget.
func (h *EnvelopeHandler) IncreaseBudget(w http.ResponseWriter, r *http.Request) {
	h.changeBudget(w, r, h.envelopeUC.IncreaseBudget)
}

// DecreaseBudget lowers the assigned budget.
func (h *EnvelopeHandler) DecreaseBudget(w http.ResponseWriter, r *http.Request) {
	h.changeBudget(w, r, h.envelopeUC.DecreaseBudget)
}

func (h *EnvelopeHandler) changeBudget(
	w http.ResponseWriter,
	r *http.Request,
	change func(context.Context, usecase.BudgetChangeInput) (*domain.Envelope, error),
) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.BudgetChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	envelope, err := change(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnvelopeFromDomain(envelope))
}

// LinkCategories links categories to the envelope.
func (h *EnvelopeHandler) LinkCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.LinkCategoriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	categories, err := h.envelopeUC.LinkCategories(r.Context(), userID, chi.URLParam(r, "id"), req.CategoryIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoriesFromDomain(categories))
}

// Categories lists the envelope's linked categories.
func (h *EnvelopeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	categories, err := h.envelopeUC.Categories(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CategoriesFromDomain(categories))
}

// Allocations lists the envelope's budget history.
func (h *EnvelopeHandler) Allocations(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	allocations, err := h.envelopeUC.Allocations(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationsFromDomain(allocations))
}

// Participants lists members of a shared envelope.
func (h *EnvelopeHandler) Participants(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	participants, err := h.envelopeUC.Participants(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ParticipantsFromDomain(participants))
}

// AddParticipant joins a user to a shared envelope.
func (h *EnvelopeHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req dto.AddParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	participant, err := h.envelopeUC.AddParticipant(r.Context(), req.ToUseCaseInput(userID, chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ParticipantFromDomain(participant))
}

// RemoveParticipant removes a non-owner member.
func (h *EnvelopeHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	participantID := chi.URLParam(r, "userID")
	if err := h.envelopeUC.RemoveParticipant(r.Context(), userID, chi.URLParam(r, "id"), participantID); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deletedResponse{ID: participantID, Deleted: true})
}

// Recompute rebuilds spent totals from the envelope's expenses.
func (h *EnvelopeHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	envelope, err := h.envelopeUC.Recompute(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EnvelopeFromDomain(envelope))
}
