package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

func TestEnvelopeUseCase_CreateEnvelope(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "u1", "USD", "100")

	e, err := f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID:        "u1",
		Name:           "Food",
		Type:           domain.EnvelopeTypeExpense,
		CurrencyID:     "USD",
		InitialBudget:  dec("400"),
		SourceWalletID: &w.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, e.MaxParticipants)
	requireDecimal(t, "0", e.Spent)

	allocations, err := f.envelopes.Allocations(f.ctx, "u1", e.ID)
	require.NoError(t, err)
	require.Len(t, allocations, 1)
	assert.Equal(t, domain.AllocationInitial, allocations[0].Type)
	requireDecimal(t, "400", allocations[0].Amount)
	require.NotNil(t, allocations[0].WalletID)
	assert.Equal(t, w.ID, *allocations[0].WalletID)

	shared := f.envelope(t, "u1", "USD", "0", true)
	assert.Equal(t, usecase.DefaultSharedParticipants, shared.MaxParticipants)

	participants, err := f.envelopes.Participants(f.ctx, "u1", shared.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, domain.RoleOwner, participants[0].Role)

	_, err = f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID: "u1", Name: "Bad", Type: domain.EnvelopeTypeSavings, CurrencyID: "EUR", SourceWalletID: &w.ID,
	})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)

	_, err = f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID: "u1", Name: "Bad", Type: domain.EnvelopeTypeDebt, CurrencyID: "USD", InitialBudget: dec("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBudget)
}

func TestEnvelopeUseCase_BudgetChanges(t *testing.T) {
	f := newFixture(t)
	e := f.envelope(t, "u1", "USD", "100", false)

	up, err := f.envelopes.IncreaseBudget(f.ctx, usecase.BudgetChangeInput{EnvelopeID: e.ID, UserID: "u1", Amount: dec("50")})
	require.NoError(t, err)
	requireDecimal(t, "150", up.BudgetAssigned)

	down, err := f.envelopes.DecreaseBudget(f.ctx, usecase.BudgetChangeInput{EnvelopeID: e.ID, UserID: "u1", Amount: dec("120")})
	require.NoError(t, err)
	requireDecimal(t, "30", down.BudgetAssigned)

	_, err = f.envelopes.DecreaseBudget(f.ctx, usecase.BudgetChangeInput{EnvelopeID: e.ID, UserID: "u1", Amount: dec("31")})
	assert.ErrorIs(t, err, domain.ErrInsufficientBudget)

	updated, err := f.envelopes.UpdateEnvelope(f.ctx, usecase.UpdateEnvelopeInput{
		ID:     e.ID,
		UserID: "u1",
		Patch:  domain.EnvelopePatch{BudgetAssigned: domain.Some(dec("500")), Name: domain.Some("Weekly food")},
	})
	require.NoError(t, err)
	requireDecimal(t, "500", updated.BudgetAssigned)
	assert.Equal(t, "Weekly food", updated.Name)

	allocations, err := f.envelopes.Allocations(f.ctx, "u1", e.ID)
	require.NoError(t, err)

	var types []domain.AllocationType
	for _, a := range allocations {
		types = append(types, a.Type)
	}
	assert.Equal(t, []domain.AllocationType{
		domain.AllocationInitial,
		domain.AllocationIncrease,
		domain.AllocationDecrease,
		domain.AllocationIncrease,
	}, types)

	report, err := f.reconciliation.Reconcile(f.ctx, "u1")
	require.NoError(t, err)
	assert.True(t, report.IsConsistent(), "%+v", report.Discrepancies)
}

func TestEnvelopeUseCase_SharedParticipants(t *testing.T) {
	f := newFixture(t)
	e := f.envelope(t, "owner", "USD", "1000", true)

	_, err := f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "alice", Role: domain.RoleContributor,
	})
	require.NoError(t, err)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "bob", Role: domain.RoleViewer,
	})
	require.NoError(t, err)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "alice", Role: domain.RoleAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateParticipant)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "carol", Role: domain.RoleOwner,
	})
	assert.ErrorIs(t, err, domain.ErrMultipleOwners)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "alice", ParticipantID: "dave", Role: domain.RoleViewer,
	})
	assert.ErrorIs(t, err, domain.ErrEnvelopeAccessDenied)

	ownerWallet := f.wallet(t, "owner", "USD", "1000")
	aliceWallet := f.wallet(t, "alice", "USD", "1000")
	bobWallet := f.wallet(t, "bob", "USD", "1000")

	f.expense(t, "owner", ownerWallet, "100", &e.ID)
	f.expense(t, "alice", aliceWallet, "30", &e.ID)
	f.expense(t, "alice", aliceWallet, "20", &e.ID)

	_, err = f.transactions.CreateExpense(f.ctx, usecase.CreateTransactionInput{
		OwnerID: "bob", WalletID: bobWallet.ID, Amount: dec("5"), EnvelopeID: &e.ID,
	})
	assert.ErrorIs(t, err, domain.ErrEnvelopeAccessDenied)

	requireDecimal(t, "150", f.reloadEnvelope(t, e.ID).Spent)

	participants, err := f.envelopes.Participants(f.ctx, "bob", e.ID)
	require.NoError(t, err)

	spent := map[string]string{}
	for _, p := range participants {
		spent[p.UserID] = p.Spent.String()
	}
	assert.Equal(t, map[string]string{"owner": "100", "alice": "50", "bob": "0"}, spent)

	require.NoError(t, f.envelopes.RemoveParticipant(f.ctx, "bob", e.ID, "bob"))
	assert.ErrorIs(t, f.envelopes.RemoveParticipant(f.ctx, "owner", e.ID, "owner"), domain.ErrOwnerRemoval)

	_, err = f.envelopes.GetEnvelope(f.ctx, "bob", e.ID)
	assert.ErrorIs(t, err, domain.ErrEnvelopeAccessDenied)
}

func TestEnvelopeUseCase_ParticipantLimit(t *testing.T) {
	f := newFixture(t)

	e, err := f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID: "owner", Name: "Trip", Type: domain.EnvelopeTypeSavings, CurrencyID: "USD",
		Shared: true, MaxParticipants: 2,
	})
	require.NoError(t, err)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "alice", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "alice", ParticipantID: "bob", Role: domain.RoleViewer,
	})
	assert.ErrorIs(t, err, domain.ErrEnvelopeFull)

	private := f.envelope(t, "owner", "USD", "0", false)
	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: private.ID, UserID: "owner", ParticipantID: "alice", Role: domain.RoleViewer,
	})
	assert.ErrorIs(t, err, domain.ErrEnvelopeNotShared)
}

func TestEnvelopeUseCase_LinkCategories(t *testing.T) {
	f := newFixture(t)
	e := f.envelope(t, "u1", "USD", "0", false)

	food, err := f.categories.CreateCategory(f.ctx, "u1", "Food")
	require.NoError(t, err)
	drinks, err := f.categories.CreateCategory(f.ctx, "u1", "Drinks")
	require.NoError(t, err)
	theirs, err := f.categories.CreateCategory(f.ctx, "u2", "Food")
	require.NoError(t, err)

	linked, err := f.envelopes.LinkCategories(f.ctx, "u1", e.ID, []string{food.ID, drinks.ID})
	require.NoError(t, err)
	require.Len(t, linked, 2)

	linked, err = f.envelopes.LinkCategories(f.ctx, "u1", e.ID, []string{food.ID})
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	_, err = f.envelopes.LinkCategories(f.ctx, "u1", e.ID, []string{theirs.ID})
	assert.ErrorIs(t, err, domain.ErrCategoryAccessDenied)

	require.NoError(t, f.categories.DeleteCategory(f.ctx, "u1", drinks.ID))

	linked, err = f.envelopes.Categories(f.ctx, "u1", e.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, food.ID, linked[0].ID)
}

func TestEnvelopeUseCase_RecomputeRepairsDrift(t *testing.T) {
	f := newFixture(t)
	w := f.wallet(t, "u1", "USD", "1000")
	e := f.envelope(t, "u1", "USD", "500", false)
	f.expense(t, "u1", w, "80", &e.ID)

	tx, err := f.txm.Begin(f.ctx)
	require.NoError(t, err)
	drifted, err := f.envelopeRepo.GetByIDForUpdate(f.ctx, tx, e.ID)
	require.NoError(t, err)
	drifted.Spent = dec("999")
	require.NoError(t, f.envelopeRepo.Update(f.ctx, tx, drifted))
	require.NoError(t, tx.Commit(f.ctx))

	report, err := f.reconciliation.Reconcile(f.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, "spent", report.Discrepancies[0].Field)
	requireDecimal(t, "919", report.Discrepancies[0].Difference)

	fixed, err := f.envelopes.Recompute(f.ctx, "u1", e.ID)
	require.NoError(t, err)
	requireDecimal(t, "80", fixed.Spent)

	report, err = f.reconciliation.Reconcile(f.ctx, "u1")
	require.NoError(t, err)
	assert.True(t, report.IsConsistent())
}

func TestEnvelopeUseCase_DeleteOnlyByOwner(t *testing.T) {
	f := newFixture(t)
	e := f.envelope(t, "owner", "USD", "0", true)

	_, err := f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "owner", ParticipantID: "alice", Role: domain.RoleAdmin,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.envelopes.DeleteEnvelope(f.ctx, "alice", e.ID), domain.ErrEnvelopeAccessDenied)
	require.NoError(t, f.envelopes.DeleteEnvelope(f.ctx, "owner", e.ID))

	_, err = f.envelopes.GetEnvelope(f.ctx, "owner", e.ID)
	assert.ErrorIs(t, err, domain.ErrEnvelopeNotFound)
}

func TestEnvelopeUseCase_RejectsSubScaleBudgets(t *testing.T) {
	f := newFixture(t)

	_, err := f.envelopes.CreateEnvelope(f.ctx, usecase.CreateEnvelopeInput{
		OwnerID: "u1", Name: "Food", Type: domain.EnvelopeTypeExpense, CurrencyID: "USD", InitialBudget: dec("50.12345"),
	})
	assert.ErrorIs(t, err, domain.ErrAmountScale)

	e := f.envelope(t, "u1", "USD", "100", true)

	_, err = f.envelopes.IncreaseBudget(f.ctx, usecase.BudgetChangeInput{EnvelopeID: e.ID, UserID: "u1", Amount: dec("0.00015")})
	assert.ErrorIs(t, err, domain.ErrAmountScale)

	_, err = f.envelopes.UpdateEnvelope(f.ctx, usecase.UpdateEnvelopeInput{
		ID: e.ID, UserID: "u1", Patch: domain.EnvelopePatch{BudgetAssigned: domain.Some(dec("120.00001"))},
	})
	assert.ErrorIs(t, err, domain.ErrAmountScale)

	_, err = f.envelopes.AddParticipant(f.ctx, usecase.AddParticipantInput{
		EnvelopeID: e.ID, UserID: "u1", ParticipantID: "alice", Role: domain.RoleContributor, BudgetAssigned: dec("10.55555"),
	})
	assert.ErrorIs(t, err, domain.ErrAmountScale)

	requireDecimal(t, "100", f.reloadEnvelope(t, e.ID).BudgetAssigned)
}
