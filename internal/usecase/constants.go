package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultSharedParticipants is the participant limit of a shared envelope
	// created without an explicit one.
	DefaultSharedParticipants = 5

	// DefaultCurrency is used when neither the caller nor the config names one.
	DefaultCurrency = "USD"
)
