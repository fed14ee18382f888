package memory

import (
	"context"
	"time"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create appends an event.
func (r *OutboxRepository) Create(_ context.Context, tx usecase.Tx, event *domain.OutboxEvent) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		t.outbox = append(t.outbox, *event)
		return nil
	})
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var out []*domain.OutboxEvent
	r.store.read(func(t *tables) {
		for _, e := range t.outbox {
			if e.Published {
				continue
			}
			e := e
			out = append(out, &e)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

// MarkPublished flags an event as published.
func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		for i := range t.outbox {
			if t.outbox[i].ID == id {
				t.outbox[i].Published = true
				t.outbox[i].PublishedAt = &publishedAt
				return nil
			}
		}
		return nil
	})
}

// DeletePublished drops events published before the cutoff.
func (r *OutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	return r.store.writeOutsideTx(func(t *tables) error {
		kept := t.outbox[:0]
		for _, e := range t.outbox {
			if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
				continue
			}
			kept = append(kept, e)
		}
		t.outbox = kept
		return nil
	})
}
