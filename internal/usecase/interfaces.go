package usecase

import (
	"context"
	"time"

	"github.com/iho/budgetledger/internal/domain"
)

// WalletRepository defines data access for wallets. Reads never return
// soft-deleted rows. Update and SoftDelete are version-checked against
// the Version carried by the argument and bump it on success.
type WalletRepository interface {
	Create(ctx context.Context, tx Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id string) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Wallet, error)
	GetByIDsForUpdate(ctx context.Context, tx Tx, ids []string) ([]*domain.Wallet, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Wallet, error)
	Update(ctx context.Context, tx Tx, wallet *domain.Wallet) error
	SoftDelete(ctx context.Context, tx Tx, wallet *domain.Wallet) error
}

// EnvelopeRepository defines data access for envelopes.
type EnvelopeRepository interface {
	Create(ctx context.Context, tx Tx, envelope *domain.Envelope) error
	GetByID(ctx context.Context, id string) (*domain.Envelope, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Envelope, error)
	GetByIDsForUpdate(ctx context.Context, tx Tx, ids []string) ([]*domain.Envelope, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Envelope, error)
	Update(ctx context.Context, tx Tx, envelope *domain.Envelope) error
	SoftDelete(ctx context.Context, tx Tx, envelope *domain.Envelope) error
	LinkCategories(ctx context.Context, tx Tx, envelopeID string, categoryIDs []string) error
	ListCategoryIDs(ctx context.Context, envelopeID string) ([]string, error)
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Transaction, error)
	Update(ctx context.Context, tx Tx, transaction *domain.Transaction) error
	SoftDelete(ctx context.Context, tx Tx, transaction *domain.Transaction) error
	List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error)
	ListActiveByWallet(ctx context.Context, walletID string) ([]*domain.Transaction, error)
	ListActiveByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Transaction, error)
	// SumExpensesByEnvelope groups the envelope's active GASTO amounts by owner.
	SumExpensesByEnvelope(ctx context.Context, tx Tx, envelopeID string) ([]domain.UserSpending, error)
}

// CategoryRepository defines data access for categories.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	// FindByName matches case-insensitively within the owner's catalog.
	FindByName(ctx context.Context, ownerID, name string) (*domain.Category, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	// SoftDelete also soft-deletes the category's subcategories.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// SubcategoryRepository defines data access for subcategories.
type SubcategoryRepository interface {
	Create(ctx context.Context, subcategory *domain.Subcategory) error
	GetByID(ctx context.Context, id string) (*domain.Subcategory, error)
	FindByName(ctx context.Context, categoryID, name string) (*domain.Subcategory, error)
	ListByCategory(ctx context.Context, categoryID string) ([]*domain.Subcategory, error)
	Update(ctx context.Context, subcategory *domain.Subcategory) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// ParticipantRepository defines data access for envelope participants.
// Writers must hold the envelope row lock.
type ParticipantRepository interface {
	Find(ctx context.Context, envelopeID, userID string) (*domain.Participant, error)
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Participant, error)
	Create(ctx context.Context, tx Tx, participant *domain.Participant) error
	Delete(ctx context.Context, tx Tx, envelopeID, userID string) error
	// SyncSpent writes every participant's spent from the grouped sums;
	// participants missing from spending get zero.
	SyncSpent(ctx context.Context, tx Tx, envelopeID string, spending []domain.UserSpending, at time.Time) error
}

// AllocationRepository defines data access for the budget allocation trail.
type AllocationRepository interface {
	Create(ctx context.Context, tx Tx, allocation *domain.BudgetAllocation) error
	ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.BudgetAllocation, error)
}

// PreferenceRepository defines data access for user preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserPreference, error)
	Upsert(ctx context.Context, preference *domain.UserPreference) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Tx, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Tx represents a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager handles transaction lifecycle.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// MetricsRecorder receives ledger metrics. A nil recorder is allowed.
type MetricsRecorder interface {
	RecordTransaction(txType string)
	RecordTransfer(mode string)
	RecordWarning(warningType string)
	RecordBudgetChange(allocationType string)
	RecordFailure(operation, kind string)
	ObserveOperation(operation string, duration time.Duration)
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
