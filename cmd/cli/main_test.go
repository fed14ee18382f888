package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, server *httptest.Server, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--url", server.URL, "--user", "u1"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestWalletsList_Table(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/wallets", r.URL.Path)
		assert.Equal(t, "u1", r.Header.Get("X-User-ID"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		respond(w, http.StatusOK, `{"success":true,"data":{"items":[
			{"id":"w1","name":"Checking","type":"debit","currency_id":"USD","real_balance":"-200","projected_balance":"-200"}
		],"limit":10,"offset":0}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "wallets", "list", "--limit", "10")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "PROJECTED")
	assert.Contains(t, lines[1], "Checking")
	assert.Contains(t, lines[1], "-200")
}

func TestTransactionsList_YAML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GASTO", r.URL.Query().Get("type"))
		assert.Equal(t, "w1", r.URL.Query().Get("wallet_id"))
		assert.Empty(t, r.URL.Query().Get("envelope_id"))
		respond(w, http.StatusOK, `{"success":true,"data":{"items":[
			{"id":"t1","type":"GASTO","amount":"700","currency_id":"USD","wallet_id":"w1","description":"rent","date":"2024-03-01T00:00:00Z"}
		],"limit":50,"offset":0}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "transactions", "list", "--wallet", "w1", "--type", "GASTO", "-o", "yaml")
	require.NoError(t, err)

	var decoded page[transaction]
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "700", decoded.Items[0].Amount)
	assert.Equal(t, "rent", decoded.Items[0].Description)
}

func TestTransfer_SendsUndeclared(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "UNDECLARED", body["source_wallet_id"])
		assert.Equal(t, "100", body["amount"])

		respond(w, http.StatusCreated, `{"success":true,"data":{"source_wallet_id":"UNDECLARED",
			"destination_wallet_id":"w2","amount":"100","currency_id":"USD"}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "transfer", "--from", "UNDECLARED", "--to", "w2", "--amount", "100", "-o", "json")
	require.NoError(t, err)

	var decoded transferResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "w2", decoded.DestinationWalletID)
}

func TestTransfer_ReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusUnprocessableEntity,
			`{"success":false,"error":{"code":"CURRENCY_MISMATCH","message":"currencies do not match"}}`)
	}))
	defer server.Close()

	_, err := execute(t, server, "transfer", "--from", "w1", "--to", "w2", "--amount", "1")

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "CURRENCY_MISMATCH", apiErr.Code)
}

func TestReconcile_InconsistentFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, `{"success":true,"data":{"consistent":false,"wallets_checked":1,"envelopes_checked":0,
			"discrepancies":[{"resource_type":"wallet","resource_id":"w1","field":"real_balance",
			"recorded":"90","calculated":"100","difference":"-10"}]}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "reconcile")
	assert.ErrorIs(t, err, errInconsistent)
	assert.Contains(t, out, "real_balance")
}

func TestEnvelopesRecompute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/envelopes/e1/recompute", r.URL.Path)
		respond(w, http.StatusOK, `{"success":true,"data":{"id":"e1","name":"Food","type":"expense",
			"currency_id":"USD","budget_assigned":"1000","spent":"1100","available":"-100"}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "envelopes", "recompute", "e1")
	require.NoError(t, err)
	assert.Contains(t, out, "1100")
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ready", r.URL.Path)
		respond(w, http.StatusOK, `{"success":true,"data":{"status":"ready","postgres":"ok"}}`)
	}))
	defer server.Close()

	out, err := execute(t, server, "ledger", "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "postgres")
}

func TestUnknownOutputFormat(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := execute(t, server, "wallets", "list", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}
