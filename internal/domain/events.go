package domain

import (
	"encoding/json"
	"time"
)

// Event types
const (
	EventTypeTransactionCreated    = "transaction.created"
	EventTypeTransactionUpdated    = "transaction.updated"
	EventTypeTransactionDeleted    = "transaction.deleted"
	EventTypeTransferCompleted     = "transfer.completed"
	EventTypeTransferNoted         = "transfer.noted"
	EventTypeWalletCreated         = "wallet.created"
	EventTypeWalletDeleted         = "wallet.deleted"
	EventTypeEnvelopeBudgetChanged = "envelope.budget_changed"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeTransfer    = "transfer"
	AggregateTypeWallet      = "wallet"
	AggregateTypeEnvelope    = "envelope"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionEvent payload
type TransactionEvent struct {
	TransactionID string  `json:"transaction_id"`
	WalletID      string  `json:"wallet_id"`
	OwnerID       string  `json:"owner_id"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	EnvelopeID    *string `json:"envelope_id,omitempty"`
	Version       int64   `json:"version"`
}

// TransferEvent payload
type TransferEvent struct {
	Source         string   `json:"source"`
	Destination    string   `json:"destination"`
	Amount         string   `json:"amount"`
	Currency       string   `json:"currency"`
	OwnerID        string   `json:"owner_id"`
	TransactionIDs []string `json:"transaction_ids"`
}

// WalletEvent payload
type WalletEvent struct {
	WalletID string `json:"wallet_id"`
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// EnvelopeBudgetEvent payload
type EnvelopeBudgetEvent struct {
	EnvelopeID     string `json:"envelope_id"`
	AllocationType string `json:"allocation_type"`
	Change         string `json:"change"`
	BudgetAssigned string `json:"budget_assigned"`
}

// Payload converts an event struct into the generic map stored in the outbox.
func Payload(event any) map[string]any {
	raw, err := json.Marshal(event)
	if err != nil {
		return map[string]any{}
	}

	payload := map[string]any{}
	_ = json.Unmarshal(raw, &payload)

	return payload
}
