package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
)

// EnvelopeUseCase handles envelopes, their budget and their participants.
type EnvelopeUseCase struct {
	runner          txRunner
	envelopeRepo    EnvelopeRepository
	walletRepo      WalletRepository
	categoryRepo    CategoryRepository
	participantRepo ParticipantRepository
	allocationRepo  AllocationRepository
	tracker         *BudgetTracker
	idGen           IDGenerator
}

// NewEnvelopeUseCase creates a new EnvelopeUseCase.
func NewEnvelopeUseCase(
	txManager TxManager,
	envelopeRepo EnvelopeRepository,
	walletRepo WalletRepository,
	transactionRepo TransactionRepository,
	categoryRepo CategoryRepository,
	participantRepo ParticipantRepository,
	allocationRepo AllocationRepository,
	idGen IDGenerator,
) *EnvelopeUseCase {
	return &EnvelopeUseCase{
		runner:          txRunner{txManager: txManager, idGen: idGen},
		envelopeRepo:    envelopeRepo,
		walletRepo:      walletRepo,
		categoryRepo:    categoryRepo,
		participantRepo: participantRepo,
		allocationRepo:  allocationRepo,
		tracker:         NewBudgetTracker(envelopeRepo, transactionRepo, participantRepo),
		idGen:           idGen,
	}
}

// WithRetrier sets the retrier used around each database transaction.
func (uc *EnvelopeUseCase) WithRetrier(retrier Retrier) *EnvelopeUseCase {
	uc.runner.retrier = retrier
	return uc
}

// WithMetrics sets the metrics recorder.
func (uc *EnvelopeUseCase) WithMetrics(metrics MetricsRecorder) *EnvelopeUseCase {
	uc.runner.metrics = metrics
	return uc
}

// WithOutbox enables outbox events.
func (uc *EnvelopeUseCase) WithOutbox(outbox OutboxRepository) *EnvelopeUseCase {
	uc.runner.outbox = outbox
	return uc
}

// CreateEnvelopeInput represents input for creating an envelope.
type CreateEnvelopeInput struct {
	OwnerID         string
	Name            string
	Type            domain.EnvelopeType
	CurrencyID      string
	InitialBudget   decimal.Decimal
	SourceWalletID  *string
	Shared          bool
	MaxParticipants int
}

// UpdateEnvelopeInput represents input for updating an envelope.
type UpdateEnvelopeInput struct {
	ID     string
	UserID string
	Patch  domain.EnvelopePatch
}

// BudgetChangeInput moves an envelope's assigned budget up or down.
type BudgetChangeInput struct {
	EnvelopeID string
	UserID     string
	Amount     decimal.Decimal
	WalletID   *string
}

// AddParticipantInput represents input for joining a user to a shared envelope.
type AddParticipantInput struct {
	EnvelopeID     string
	UserID         string
	ParticipantID  string
	Role           domain.ParticipantRole
	BudgetAssigned decimal.Decimal
}

// CreateEnvelope creates an envelope. A positive initial budget writes an
// initial allocation; a shared envelope gets its creator as owner participant.
func (uc *EnvelopeUseCase) CreateEnvelope(ctx context.Context, input CreateEnvelopeInput) (*domain.Envelope, error) {
	if err := requireOwner(input.OwnerID); err != nil {
		return nil, err
	}

	name, err := domain.ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, domain.ErrInvalidEnvelopeType
	}
	currency, err := domain.NormalizeCurrency(input.CurrencyID)
	if err != nil {
		return nil, err
	}
	if input.InitialBudget.IsNegative() {
		return nil, domain.ErrInvalidBudget
	}
	if err := domain.ValidateScale(input.InitialBudget); err != nil {
		return nil, err
	}

	maxParticipants := input.MaxParticipants
	switch {
	case maxParticipants < 0:
		return nil, domain.ErrInvalidMaxParticipants
	case maxParticipants == 0 && input.Shared:
		maxParticipants = DefaultSharedParticipants
	case maxParticipants == 0:
		maxParticipants = 1
	}

	var envelope *domain.Envelope

	err = uc.runner.run(ctx, "envelope.create", func(ctx context.Context, tx Tx) error {
		if input.SourceWalletID != nil {
			if err := uc.checkFundingWallet(ctx, *input.SourceWalletID, input.OwnerID, currency); err != nil {
				return err
			}
		}

		ts := now()
		e := &domain.Envelope{
			ID:              uc.idGen.Generate(),
			Name:            name,
			Type:            input.Type,
			CurrencyID:      currency,
			BudgetAssigned:  input.InitialBudget,
			Spent:           decimal.Zero,
			Shared:          input.Shared,
			MaxParticipants: maxParticipants,
			OwnerID:         input.OwnerID,
			Version:         1,
			CreatedAt:       ts,
			UpdatedAt:       ts,
		}

		if err := uc.envelopeRepo.Create(ctx, tx, e); err != nil {
			return err
		}

		if e.BudgetAssigned.IsPositive() {
			if err := uc.allocate(ctx, tx, e, input.OwnerID, input.SourceWalletID, e.BudgetAssigned, domain.AllocationInitial); err != nil {
				return err
			}
		}

		if e.Shared {
			if err := uc.participantRepo.Create(ctx, tx, &domain.Participant{
				EnvelopeID:     e.ID,
				UserID:         input.OwnerID,
				Role:           domain.RoleOwner,
				BudgetAssigned: decimal.Zero,
				Spent:          decimal.Zero,
				CreatedAt:      ts,
				UpdatedAt:      ts,
			}); err != nil {
				return err
			}
		}

		envelope = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("envelope_id", envelope.ID).
		Str("budget", envelope.BudgetAssigned.String()).
		Msg("envelope created")

	return envelope, nil
}

// GetEnvelope returns an envelope the caller owns or participates in.
func (uc *EnvelopeUseCase) GetEnvelope(ctx context.Context, userID, id string) (*domain.Envelope, error) {
	envelope, err := uc.envelopeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := envelopeRole(ctx, uc.participantRepo, envelope, userID); err != nil {
		return nil, err
	}
	return envelope, nil
}

// ListEnvelopes lists the caller's active envelopes.
func (uc *EnvelopeUseCase) ListEnvelopes(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Envelope, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.envelopeRepo.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateEnvelope applies a patch. A budget change writes an increase or
// decrease allocation for the difference.
func (uc *EnvelopeUseCase) UpdateEnvelope(ctx context.Context, input UpdateEnvelopeInput) (*domain.Envelope, error) {
	if err := requireOwner(input.UserID); err != nil {
		return nil, err
	}

	patch := input.Patch
	name, hasName := patch.Name.Get()
	if hasName {
		var err error
		if name, err = domain.ValidateName(name); err != nil {
			return nil, err
		}
	}
	if t, ok := patch.Type.Get(); ok && !t.IsValid() {
		return nil, domain.ErrInvalidEnvelopeType
	}
	if b, ok := patch.BudgetAssigned.Get(); ok {
		if b.IsNegative() {
			return nil, domain.ErrInvalidBudget
		}
		if err := domain.ValidateScale(b); err != nil {
			return nil, err
		}
	}

	var envelope *domain.Envelope

	err := uc.runner.run(ctx, "envelope.update", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if err := checkEnvelopeManage(ctx, uc.participantRepo, e, input.UserID); err != nil {
			return err
		}
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != e.Version {
			return domain.ErrVersionConflict
		}

		if hasName {
			e.Name = name
		}
		if t, ok := patch.Type.Get(); ok {
			e.Type = t
		}

		var change decimal.Decimal
		if b, ok := patch.BudgetAssigned.Get(); ok {
			change = b.Sub(e.BudgetAssigned)
			e.BudgetAssigned = b
		}
		e.UpdatedAt = now()

		if err := uc.envelopeRepo.Update(ctx, tx, e); err != nil {
			return err
		}

		if !change.IsZero() {
			allocType := domain.AllocationIncrease
			if change.IsNegative() {
				allocType = domain.AllocationDecrease
			}
			if err := uc.allocate(ctx, tx, e, input.UserID, nil, change, allocType); err != nil {
				return err
			}
		}

		envelope = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelope, nil
}

// DeleteEnvelope soft-deletes an envelope. Only the owner may delete it.
func (uc *EnvelopeUseCase) DeleteEnvelope(ctx context.Context, userID, id string) error {
	if err := requireOwner(userID); err != nil {
		return err
	}

	return uc.runner.run(ctx, "envelope.delete", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.OwnerID != userID {
			return domain.ErrEnvelopeAccessDenied
		}

		ts := now()
		e.DeletedAt = &ts
		e.UpdatedAt = ts

		return uc.envelopeRepo.SoftDelete(ctx, tx, e)
	})
}

// IncreaseBudget raises the assigned budget, optionally funded by a wallet.
func (uc *EnvelopeUseCase) IncreaseBudget(ctx context.Context, input BudgetChangeInput) (*domain.Envelope, error) {
	return uc.changeBudget(ctx, input, domain.AllocationIncrease)
}

// DecreaseBudget lowers the assigned budget. It cannot go below zero.
func (uc *EnvelopeUseCase) DecreaseBudget(ctx context.Context, input BudgetChangeInput) (*domain.Envelope, error) {
	return uc.changeBudget(ctx, input, domain.AllocationDecrease)
}

func (uc *EnvelopeUseCase) changeBudget(ctx context.Context, input BudgetChangeInput, allocType domain.AllocationType) (*domain.Envelope, error) {
	if err := requireOwner(input.UserID); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	change := input.Amount
	if allocType == domain.AllocationDecrease {
		change = change.Neg()
	}

	var envelope *domain.Envelope

	err := uc.runner.run(ctx, "envelope.budget_"+string(allocType), func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, input.EnvelopeID)
		if err != nil {
			return err
		}
		if err := checkEnvelopeManage(ctx, uc.participantRepo, e, input.UserID); err != nil {
			return err
		}

		if input.WalletID != nil {
			if err := uc.checkFundingWallet(ctx, *input.WalletID, input.UserID, e.CurrencyID); err != nil {
				return err
			}
		}

		next := e.BudgetAssigned.Add(change)
		if next.IsNegative() {
			return domain.ErrInsufficientBudget
		}

		e.BudgetAssigned = next
		e.UpdatedAt = now()
		if err := uc.envelopeRepo.Update(ctx, tx, e); err != nil {
			return err
		}

		if err := uc.allocate(ctx, tx, e, input.UserID, input.WalletID, change, allocType); err != nil {
			return err
		}

		envelope = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelope, nil
}

// LinkCategories links the caller's categories to an envelope. Linking is
// idempotent; the full linked set is returned.
func (uc *EnvelopeUseCase) LinkCategories(ctx context.Context, userID, envelopeID string, categoryIDs []string) ([]*domain.Category, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}

	for _, id := range categoryIDs {
		cat, err := uc.categoryRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if cat.OwnerID != userID {
			return nil, domain.ErrCategoryAccessDenied
		}
	}

	err := uc.runner.run(ctx, "envelope.link_categories", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, envelopeID)
		if err != nil {
			return err
		}
		if err := checkEnvelopeManage(ctx, uc.participantRepo, e, userID); err != nil {
			return err
		}
		return uc.envelopeRepo.LinkCategories(ctx, tx, envelopeID, categoryIDs)
	})
	if err != nil {
		return nil, err
	}

	return uc.Categories(ctx, userID, envelopeID)
}

// Categories lists the active categories linked to an envelope.
func (uc *EnvelopeUseCase) Categories(ctx context.Context, userID, envelopeID string) ([]*domain.Category, error) {
	if _, err := uc.GetEnvelope(ctx, userID, envelopeID); err != nil {
		return nil, err
	}

	ids, err := uc.envelopeRepo.ListCategoryIDs(ctx, envelopeID)
	if err != nil {
		return nil, err
	}

	categories := make([]*domain.Category, 0, len(ids))
	for _, id := range ids {
		cat, err := uc.categoryRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrCategoryNotFound) {
				continue
			}
			return nil, err
		}
		categories = append(categories, cat)
	}

	return categories, nil
}

// Allocations lists the budget allocation trail of an envelope.
func (uc *EnvelopeUseCase) Allocations(ctx context.Context, userID, envelopeID string) ([]*domain.BudgetAllocation, error) {
	if _, err := uc.GetEnvelope(ctx, userID, envelopeID); err != nil {
		return nil, err
	}
	return uc.allocationRepo.ListByEnvelope(ctx, envelopeID)
}

// Participants lists the participants of an envelope.
func (uc *EnvelopeUseCase) Participants(ctx context.Context, userID, envelopeID string) ([]*domain.Participant, error) {
	if _, err := uc.GetEnvelope(ctx, userID, envelopeID); err != nil {
		return nil, err
	}
	return uc.participantRepo.ListByEnvelope(ctx, envelopeID)
}

// AddParticipant joins a user to a shared envelope.
func (uc *EnvelopeUseCase) AddParticipant(ctx context.Context, input AddParticipantInput) (*domain.Participant, error) {
	if err := requireOwner(input.UserID); err != nil {
		return nil, err
	}
	if input.ParticipantID == "" {
		return nil, domain.ErrMissingOwner
	}
	if !input.Role.IsValid() {
		return nil, domain.ErrInvalidRole
	}
	if input.BudgetAssigned.IsNegative() {
		return nil, domain.ErrInvalidBudget
	}
	if err := domain.ValidateScale(input.BudgetAssigned); err != nil {
		return nil, err
	}

	var participant *domain.Participant

	err := uc.runner.run(ctx, "envelope.add_participant", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, input.EnvelopeID)
		if err != nil {
			return err
		}
		if !e.Shared {
			return domain.ErrEnvelopeNotShared
		}
		if err := checkEnvelopeManage(ctx, uc.participantRepo, e, input.UserID); err != nil {
			return err
		}

		existing, err := uc.participantRepo.ListByEnvelope(ctx, e.ID)
		if err != nil {
			return err
		}

		for _, p := range existing {
			if p.UserID == input.ParticipantID {
				return domain.ErrDuplicateParticipant
			}
			if input.Role == domain.RoleOwner && p.Role == domain.RoleOwner {
				return domain.ErrMultipleOwners
			}
		}
		if len(existing) >= e.MaxParticipants {
			return domain.ErrEnvelopeFull
		}

		ts := now()
		p := &domain.Participant{
			EnvelopeID:     e.ID,
			UserID:         input.ParticipantID,
			Role:           input.Role,
			BudgetAssigned: input.BudgetAssigned,
			Spent:          decimal.Zero,
			CreatedAt:      ts,
			UpdatedAt:      ts,
		}
		if err := uc.participantRepo.Create(ctx, tx, p); err != nil {
			return err
		}

		participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return participant, nil
}

// RemoveParticipant removes a user from a shared envelope. Users may leave
// on their own; the owner cannot be removed.
func (uc *EnvelopeUseCase) RemoveParticipant(ctx context.Context, userID, envelopeID, participantID string) error {
	if err := requireOwner(userID); err != nil {
		return err
	}

	return uc.runner.run(ctx, "envelope.remove_participant", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, envelopeID)
		if err != nil {
			return err
		}

		if userID != participantID {
			if err := checkEnvelopeManage(ctx, uc.participantRepo, e, userID); err != nil {
				return err
			}
		}

		p, err := uc.participantRepo.Find(ctx, envelopeID, participantID)
		if err != nil {
			return err
		}
		if p.Role == domain.RoleOwner {
			return domain.ErrOwnerRemoval
		}

		return uc.participantRepo.Delete(ctx, tx, envelopeID, participantID)
	})
}

// Recompute re-derives spent from the envelope's expenses.
func (uc *EnvelopeUseCase) Recompute(ctx context.Context, userID, envelopeID string) (*domain.Envelope, error) {
	if err := requireOwner(userID); err != nil {
		return nil, err
	}

	var envelope *domain.Envelope

	err := uc.runner.run(ctx, "envelope.recompute", func(ctx context.Context, tx Tx) error {
		e, err := uc.envelopeRepo.GetByIDForUpdate(ctx, tx, envelopeID)
		if err != nil {
			return err
		}
		if _, err := envelopeRole(ctx, uc.participantRepo, e, userID); err != nil {
			return err
		}
		if err := uc.tracker.Recompute(ctx, tx, e); err != nil {
			return err
		}

		envelope = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelope, nil
}

func (uc *EnvelopeUseCase) checkFundingWallet(ctx context.Context, walletID, userID, currency string) error {
	wallet, err := uc.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return err
	}
	if err := checkWalletOwner(wallet, userID); err != nil {
		return err
	}
	if wallet.CurrencyID != currency {
		return domain.ErrCurrencyMismatch
	}
	return nil
}

// allocate appends an allocation row for a budget change already applied to e.
func (uc *EnvelopeUseCase) allocate(ctx context.Context, tx Tx, e *domain.Envelope, userID string, walletID *string, change decimal.Decimal, allocType domain.AllocationType) error {
	if err := uc.allocationRepo.Create(ctx, tx, &domain.BudgetAllocation{
		ID:         uc.idGen.Generate(),
		EnvelopeID: e.ID,
		WalletID:   walletID,
		UserID:     userID,
		Amount:     change,
		CurrencyID: e.CurrencyID,
		Type:       allocType,
		CreatedAt:  now(),
	}); err != nil {
		return err
	}

	uc.runner.recorder().RecordBudgetChange(string(allocType))

	return uc.runner.emit(ctx, tx, domain.AggregateTypeEnvelope, e.ID, domain.EventTypeEnvelopeBudgetChanged,
		domain.EnvelopeBudgetEvent{
			EnvelopeID:     e.ID,
			AllocationType: string(allocType),
			Change:         change.String(),
			BudgetAssigned: e.BudgetAssigned.String(),
		})
}
