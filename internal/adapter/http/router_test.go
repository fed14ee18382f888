package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/budgetledger/internal/adapter/http/dto"
	"github.com/iho/budgetledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/budgetledger/internal/adapter/http/middleware"
	"github.com/iho/budgetledger/internal/adapter/repository/memory"
	redisrepo "github.com/iho/budgetledger/internal/adapter/repository/redis"
	"github.com/iho/budgetledger/internal/usecase"
)

type counterIDs struct {
	mu sync.Mutex
	n  int
}

func (g *counterIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%05d", g.n)
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	ids := &counterIDs{}

	wallets := memory.NewWalletRepository(store)
	envelopes := memory.NewEnvelopeRepository(store)
	transactions := memory.NewTransactionRepository(store)
	categories := memory.NewCategoryRepository(store)
	subcategories := memory.NewSubcategoryRepository(store)
	participants := memory.NewParticipantRepository(store)
	allocations := memory.NewAllocationRepository(store)
	outbox := memory.NewOutboxRepository(store)

	preferenceUC := usecase.NewPreferenceUseCase(memory.NewPreferenceRepository(store), nil, 0, "USD")

	cfg := RouterConfig{
		WalletHandler: handler.NewWalletHandler(
			usecase.NewWalletUseCase(txm, wallets, transactions, ids).WithOutbox(outbox)),
		EnvelopeHandler: handler.NewEnvelopeHandler(
			usecase.NewEnvelopeUseCase(txm, envelopes, wallets, transactions, categories, participants, allocations, ids).WithOutbox(outbox)),
		TransactionHandler: handler.NewTransactionHandler(
			usecase.NewTransactionUseCase(txm, wallets, envelopes, transactions, categories, subcategories, participants, allocations, ids).WithOutbox(outbox)),
		TransferHandler: handler.NewTransferHandler(
			usecase.NewTransferUseCase(txm, wallets, envelopes, transactions, participants, allocations, preferenceUC, ids).WithOutbox(outbox)),
		CategoryHandler: handler.NewCategoryHandler(usecase.NewCategoryUseCase(categories, subcategories, ids)),
		AccountHandler: handler.NewAccountHandler(preferenceUC,
			usecase.NewReconciliationUseCase(wallets, envelopes, transactions, allocations)),
		HealthHandler: handler.NewHealthHandler(),
		Logger:        zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorBody  `json:"error"`
}

func call(t *testing.T, h http.Handler, method, path, user, body string, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(apimiddleware.UserIDHeader, user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func createWallet(t *testing.T, h http.Handler, user, currency, balance string) map[string]any {
	t.Helper()
	rec, resp := call(t, h, http.MethodPost, "/api/v1/wallets", user,
		fmt.Sprintf(`{"name":"Main","type":"debit","currency_id":%q,"initial_balance":%q}`, currency, balance))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](t, resp.Data)
}

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec, resp := call(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestNewRouter_ReadinessReportsFailingDependency(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.HealthHandler = handler.NewHealthHandler(
			handler.Check{Name: "postgres", Probe: func(context.Context) error { return nil }},
			handler.Check{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }},
		)
	}))

	rec, resp := call(t, router, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "redis")
}

func TestNewRouter_RequiresCaller(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec, resp := call(t, router, http.MethodGet, "/api/v1/wallets", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, resp.Success)
}

func TestNewRouter_WalletLifecycle(t *testing.T) {
	router := NewRouter(newRouterConfig())
	wallet := createWallet(t, router, "u1", "USD", "500")
	id := wallet["id"].(string)

	rec, resp := call(t, router, http.MethodPost, "/api/v1/transactions/expense", "u1",
		fmt.Sprintf(`{"wallet_id":%q,"amount":"700","description":"rent"}`, id))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	result := decode[map[string]any](t, resp.Data)
	assert.NotContains(t, result, "warning")

	_, resp = call(t, router, http.MethodGet, "/api/v1/wallets/"+id, "u1", "")
	assert.Equal(t, "-200", decode[map[string]any](t, resp.Data)["real_balance"])

	rec, resp = call(t, router, http.MethodDelete, "/api/v1/wallets/"+id, "u1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "WALLET_BALANCE_NOT_ZERO", resp.Error.Code)

	rec, _ = call(t, router, http.MethodPost, "/api/v1/wallets/"+id+"/adjust", "u1", `{"target_balance":"0"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = call(t, router, http.MethodDelete, "/api/v1/wallets/"+id, "u1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, resp = call(t, router, http.MethodGet, "/api/v1/wallets", "u1", "")
	page := decode[dto.ListResponse[map[string]any]](t, resp.Data)
	assert.Empty(t, page.Items)
}

func TestNewRouter_UndeclaredTransferCreditsOnlyDestination(t *testing.T) {
	router := NewRouter(newRouterConfig())
	id := createWallet(t, router, "u1", "USD", "0")["id"].(string)

	rec, resp := call(t, router, http.MethodPost, "/api/v1/transfers", "u1",
		fmt.Sprintf(`{"source_wallet_id":"UNDECLARED","destination_wallet_id":%q,"amount":"100"}`, id))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	transfer := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "UNDECLARED", transfer["source_wallet_id"])
	assert.NotContains(t, transfer, "debit")
	assert.Contains(t, transfer, "credit")

	_, resp = call(t, router, http.MethodGet, "/api/v1/wallets/"+id, "u1", "")
	assert.Equal(t, "100", decode[map[string]any](t, resp.Data)["real_balance"])
}

func TestNewRouter_OverspendWarning(t *testing.T) {
	router := NewRouter(newRouterConfig())
	walletID := createWallet(t, router, "u1", "USD", "5000")["id"].(string)

	rec, resp := call(t, router, http.MethodPost, "/api/v1/envelopes", "u1",
		`{"name":"Food","type":"expense","currency_id":"USD","initial_budget":"1000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	envelopeID := decode[map[string]any](t, resp.Data)["id"].(string)

	expense := func(amount string) map[string]any {
		rec, resp := call(t, router, http.MethodPost, "/api/v1/transactions/expense", "u1",
			fmt.Sprintf(`{"wallet_id":%q,"envelope_id":%q,"amount":%q}`, walletID, envelopeID, amount))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[map[string]any](t, resp.Data)
	}

	assert.NotContains(t, expense("900"), "warning")

	warning, ok := expense("200")["warning"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OVERSPEND_SOBRE", warning["type"])
	details, ok := warning["details"].(map[string]any)
	require.True(t, ok, "%v", warning)
	assert.Equal(t, "10", details["porcentajeExceso"])
	assert.Equal(t, "1000", details["presupuestoAsignado"])
	assert.Equal(t, "1100", details["gastoProyectado"])
	assert.Equal(t, "Food", details["nombreSobre"])
	assert.NotContains(t, details, "balanceNuevo")

	_, resp = call(t, router, http.MethodGet, "/api/v1/envelopes/"+envelopeID, "u1", "")
	assert.Equal(t, "1100", decode[map[string]any](t, resp.Data)["spent"])

	rec, resp = call(t, router, http.MethodGet, "/api/v1/reconciliation", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, resp.Data)["consistent"])
}

func TestNewRouter_ErrorMapping(t *testing.T) {
	router := NewRouter(newRouterConfig())
	usd := createWallet(t, router, "u1", "USD", "100")["id"].(string)
	eur := createWallet(t, router, "u1", "EUR", "100")["id"].(string)

	rec, resp := call(t, router, http.MethodPost, "/api/v1/transfers", "u1",
		fmt.Sprintf(`{"source_wallet_id":%q,"destination_wallet_id":%q,"amount":"10"}`, usd, eur))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "CURRENCY_MISMATCH", resp.Error.Code)

	rec, resp = call(t, router, http.MethodGet, "/api/v1/wallets/"+usd, "intruder", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "wallet not found or access denied", resp.Error.Message)

	rec, resp = call(t, router, http.MethodGet, "/api/v1/wallets/missing", "u1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "WALLET_NOT_FOUND", resp.Error.Code)

	rec, resp = call(t, router, http.MethodPost, "/api/v1/wallets", "u1", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)

	rec, resp = call(t, router, http.MethodPost, "/api/v1/transactions/expense", "u1",
		fmt.Sprintf(`{"wallet_id":%q,"amount":"-5"}`, usd))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AMOUNT", resp.Error.Code)

	rec, resp = call(t, router, http.MethodPatch, "/api/v1/wallets/"+usd, "u1", `{"name":"Renamed","expected_version":99}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "VERSION_CONFLICT", resp.Error.Code)
}

func TestNewRouter_IdempotentReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer client.Close()

	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = redisrepo.NewIdempotencyStore(client)
		cfg.IdempotencyTTL = time.Hour
	}))

	body := `{"name":"Main","type":"cash","currency_id":"USD","initial_balance":"10"}`
	first, firstResp := call(t, router, http.MethodPost, "/api/v1/wallets", "u1", body, apimiddleware.IdempotencyKeyHeader, "k1")
	second, secondResp := call(t, router, http.MethodPost, "/api/v1/wallets", "u1", body, apimiddleware.IdempotencyKeyHeader, "k1")

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	assert.JSONEq(t, string(firstResp.Data), string(secondResp.Data))

	third, _ := call(t, router, http.MethodPost, "/api/v1/wallets", "u2", body, apimiddleware.IdempotencyKeyHeader, "k1")
	assert.Empty(t, third.Header().Get("X-Idempotency-Replay"), "keys are scoped per caller")

	_, resp := call(t, router, http.MethodGet, "/api/v1/wallets", "u1", "")
	assert.Len(t, decode[dto.ListResponse[map[string]any]](t, resp.Data).Items, 1)
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = apimiddleware.NewRateLimiter(1, 1)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Routes)
	require.True(t, ok, "router does not implement chi.Routes")

	seen := map[string]bool{}
	require.NoError(t, chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}))

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/wallets/",
		"POST /api/v1/wallets/{id}/adjust",
		"POST /api/v1/transactions/expense",
		"POST /api/v1/transactions/income",
		"POST /api/v1/transfers",
		"POST /api/v1/card-payments",
		"POST /api/v1/envelope-transfers",
		"POST /api/v1/envelopes/{id}/budget/increase",
		"POST /api/v1/envelopes/{id}/recompute",
		"DELETE /api/v1/envelopes/{id}/participants/{userID}",
		"PATCH /api/v1/subcategories/{id}",
		"PUT /api/v1/me/preferences",
		"GET /api/v1/reconciliation",
	}

	for _, route := range expected {
		assert.True(t, seen[route], "expected route %s to be registered", route)
	}
}
