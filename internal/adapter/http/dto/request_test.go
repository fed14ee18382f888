package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/domain"
)

func TestParseWalletRef(t *testing.T) {
	ref, err := ParseWalletRef("UNDECLARED")
	require.NoError(t, err)
	assert.True(t, ref.IsUndeclared())

	ref, err = ParseWalletRef(" undeclared ")
	require.NoError(t, err)
	assert.True(t, ref.IsUndeclared())

	ref, err = ParseWalletRef("w1")
	require.NoError(t, err)
	id, ok := ref.ID()
	assert.True(t, ok)
	assert.Equal(t, "w1", id)

	_, err = ParseWalletRef("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidWalletRef)
}

func TestTransferRequest_ToUseCaseInput(t *testing.T) {
	req := TransferRequest{SourceWalletID: "UNDECLARED", DestinationWalletID: "w2", Amount: decimal.NewFromInt(100)}

	in, err := req.ToUseCaseInput("u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", in.OwnerID)
	assert.True(t, in.Source.IsUndeclared())
	assert.Equal(t, "w2", in.Destination.String())

	req.DestinationWalletID = ""
	_, err = req.ToUseCaseInput("u1")
	assert.ErrorIs(t, err, domain.ErrInvalidWalletRef)
}

func TestUpdateTransactionRequest_DistinguishesNullFromAbsent(t *testing.T) {
	var req UpdateTransactionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.50","envelope_id":null,"category_id":"c1"}`), &req))

	patch := req.ToUseCaseInput("u1", "t1").Patch

	amount, ok := patch.Amount.Get()
	require.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.5")))

	envelope, ok := patch.EnvelopeID.Get()
	assert.True(t, ok, "explicit null must be applied")
	assert.Nil(t, envelope)

	category, ok := patch.CategoryID.Get()
	require.True(t, ok)
	assert.Equal(t, "c1", *category)

	assert.False(t, patch.SubcategoryID.IsSet())
	assert.False(t, patch.Description.IsSet())
}

func TestUpdateWalletRequest_ClearsInterestRate(t *testing.T) {
	var req UpdateWalletRequest
	require.NoError(t, json.Unmarshal([]byte(`{"interest_rate":null,"expected_version":4}`), &req))

	in := req.ToUseCaseInput("u1", "w1")
	rate, ok := in.Patch.InterestRate.Get()
	assert.True(t, ok)
	assert.Nil(t, rate)
	assert.False(t, in.Patch.Name.IsSet())
	require.NotNil(t, in.Patch.ExpectedVersion)
	assert.Equal(t, int64(4), *in.Patch.ExpectedVersion)
}

func TestUpdateEnvelopeRequest_MapsType(t *testing.T) {
	kind := "savings"
	req := UpdateEnvelopeRequest{Type: &kind}

	in := req.ToUseCaseInput("u1", "e1")
	got, ok := in.Patch.Type.Get()
	require.True(t, ok)
	assert.Equal(t, domain.EnvelopeTypeSavings, got)
	assert.False(t, in.Patch.BudgetAssigned.IsSet())
}

func TestCreateTransactionRequest_UppercasesType(t *testing.T) {
	req := CreateTransactionRequest{WalletID: "w1", Type: "ajuste", Direction: "in", Amount: decimal.NewFromInt(5)}

	in := req.ToUseCaseInput("u1")
	assert.Equal(t, domain.TransactionTypeAjuste, in.Type)
	assert.Equal(t, domain.AdjustmentIn, in.Direction)
}
