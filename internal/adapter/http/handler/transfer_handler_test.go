package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

type transferServiceStub struct {
	TransferService

	transferFn func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
}

func (s *transferServiceStub) Transfer(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	return s.transferFn(ctx, input)
}

func TestTransferHandler_Create_UndeclaredSource(t *testing.T) {
	var captured usecase.TransferInput
	handler := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
			captured = input
			return &usecase.TransferResult{
				Source:      input.Source,
				Destination: input.Destination,
				Amount:      input.Amount,
				CurrencyID:  "USD",
				Credit:      &domain.Transaction{ID: "t1", Type: domain.TransactionTypeTransferencia, Amount: input.Amount},
			}, nil
		},
	})

	req := withCaller(httptest.NewRequest(http.MethodPost, "/transfers",
		strings.NewReader(`{"source_wallet_id":"undeclared","destination_wallet_id":"w2","amount":"100"}`)), "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !captured.Source.IsUndeclared() {
		t.Fatalf("expected undeclared source, got %s", captured.Source)
	}
	if id, ok := captured.Destination.ID(); !ok || id != "w2" {
		t.Fatalf("unexpected destination %s", captured.Destination)
	}

	var resp dto.TransferResponse
	decodeData(t, rec, &resp)
	if resp.SourceWalletID != dto.UndeclaredWallet || resp.Debit != nil || resp.Credit == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected amount %s", resp.Amount)
	}
}

func TestTransferHandler_Create_MissingWalletRef(t *testing.T) {
	handler := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	})

	req := withCaller(httptest.NewRequest(http.MethodPost, "/transfers",
		strings.NewReader(`{"destination_wallet_id":"w2","amount":"100"}`)), "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); resp.Error.Code != "INVALID_WALLET_REF" {
		t.Fatalf("unexpected code %q", resp.Error.Code)
	}
}

func TestTransferHandler_Create_CurrencyMismatch(t *testing.T) {
	handler := NewTransferHandler(&transferServiceStub{
		transferFn: func(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
			return nil, domain.ErrCurrencyMismatch
		},
	})

	req := withCaller(httptest.NewRequest(http.MethodPost, "/transfers",
		strings.NewReader(`{"source_wallet_id":"w1","destination_wallet_id":"w2","amount":"1"}`)), "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
