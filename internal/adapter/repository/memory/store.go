// Package memory is an in-process implementation of the ledger store. It
// serializes database transactions with a single lock and restores a
// snapshot on rollback, so it behaves like the Postgres store for a single
// process.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

var errTxClosed = errors.New("memory: transaction already closed")

// Store holds every table in memory.
type Store struct {
	// txMu is held for the whole life of a transaction and by writes
	// outside transactions.
	txMu sync.Mutex
	// mu guards the maps for the duration of a single call.
	mu sync.RWMutex

	data tables
}

type tables struct {
	wallets            map[string]domain.Wallet
	envelopes          map[string]domain.Envelope
	transactions       map[string]domain.Transaction
	categories         map[string]domain.Category
	subcategories      map[string]domain.Subcategory
	participants       map[string]map[string]domain.Participant
	allocations        []domain.BudgetAllocation
	envelopeCategories map[string][]string
	preferences        map[string]domain.UserPreference
	outbox             []domain.OutboxEvent
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newTables()}
}

func newTables() tables {
	return tables{
		wallets:            map[string]domain.Wallet{},
		envelopes:          map[string]domain.Envelope{},
		transactions:       map[string]domain.Transaction{},
		categories:         map[string]domain.Category{},
		subcategories:      map[string]domain.Subcategory{},
		participants:       map[string]map[string]domain.Participant{},
		envelopeCategories: map[string][]string{},
		preferences:        map[string]domain.UserPreference{},
	}
}

func (t tables) clone() tables {
	c := newTables()
	for k, v := range t.wallets {
		c.wallets[k] = v
	}
	for k, v := range t.envelopes {
		c.envelopes[k] = v
	}
	for k, v := range t.transactions {
		c.transactions[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	for k, v := range t.subcategories {
		c.subcategories[k] = v
	}
	for k, users := range t.participants {
		m := make(map[string]domain.Participant, len(users))
		for u, p := range users {
			m[u] = p
		}
		c.participants[k] = m
	}
	c.allocations = append([]domain.BudgetAllocation(nil), t.allocations...)
	for k, v := range t.envelopeCategories {
		c.envelopeCategories[k] = append([]string(nil), v...)
	}
	for k, v := range t.preferences {
		c.preferences[k] = v
	}
	c.outbox = append([]domain.OutboxEvent(nil), t.outbox...)
	return c
}

// TxManager implements usecase.TxManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a TxManager over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a transaction, waiting for any running one to finish.
func (m *TxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.txMu.Lock()

	m.store.mu.RLock()
	snapshot := m.store.data.clone()
	m.store.mu.RUnlock()

	return &Tx{store: m.store, snapshot: snapshot}, nil
}

// Tx is a memory transaction.
type Tx struct {
	store    *Store
	snapshot tables
	closed   bool
}

// Commit keeps the changes made since Begin.
func (t *Tx) Commit(_ context.Context) error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true
	t.store.txMu.Unlock()
	return nil
}

// Rollback restores the state captured at Begin. It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true

	t.store.mu.Lock()
	t.store.data = t.snapshot
	t.store.mu.Unlock()

	t.store.txMu.Unlock()
	return nil
}

func (s *Store) read(fn func(t *tables)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

func (s *Store) write(fn func(t *tables) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// writeOutsideTx serializes a write that is not part of a transaction
// against running transactions.
func (s *Store) writeOutsideTx(fn func(t *tables) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.write(fn)
}

func checkTx(tx usecase.Tx) error {
	t, ok := tx.(*Tx)
	if !ok || t.closed {
		return errTxClosed
	}
	return nil
}
