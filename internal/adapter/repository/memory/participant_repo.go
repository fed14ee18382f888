package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	store *Store
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(store *Store) *ParticipantRepository {
	return &ParticipantRepository{store: store}
}

// Find returns one participant of an envelope.
func (r *ParticipantRepository) Find(_ context.Context, envelopeID, userID string) (*domain.Participant, error) {
	var (
		p  domain.Participant
		ok bool
	)
	r.store.read(func(t *tables) {
		p, ok = t.participants[envelopeID][userID]
	})
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return &p, nil
}

// ListByEnvelope lists participants ordered by join time.
func (r *ParticipantRepository) ListByEnvelope(_ context.Context, envelopeID string) ([]*domain.Participant, error) {
	var out []*domain.Participant
	r.store.read(func(t *tables) {
		for _, p := range t.participants[envelopeID] {
			p := p
			out = append(out, &p)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Create adds a participant.
func (r *ParticipantRepository) Create(_ context.Context, tx usecase.Tx, p *domain.Participant) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		users, ok := t.participants[p.EnvelopeID]
		if !ok {
			users = map[string]domain.Participant{}
			t.participants[p.EnvelopeID] = users
		}
		if _, exists := users[p.UserID]; exists {
			return domain.ErrDuplicateParticipant
		}
		users[p.UserID] = *p
		return nil
	})
}

// Delete removes a participant.
func (r *ParticipantRepository) Delete(_ context.Context, tx usecase.Tx, envelopeID, userID string) error {
	if err := checkTx(tx); err != nil {
		return err
	}
	return r.store.write(func(t *tables) error {
		users := t.participants[envelopeID]
		if _, ok := users[userID]; !ok {
			return domain.ErrParticipantNotFound
		}
		delete(users, userID)
		return nil
	})
}

// SyncSpent overwrites every participant's spent from spending.
func (r *ParticipantRepository) SyncSpent(_ context.Context, tx usecase.Tx, envelopeID string, spending []domain.UserSpending, at time.Time) error {
	if err := checkTx(tx); err != nil {
		return err
	}

	byUser := make(map[string]decimal.Decimal, len(spending))
	for _, s := range spending {
		byUser[s.UserID] = s.Amount
	}

	return r.store.write(func(t *tables) error {
		users := t.participants[envelopeID]
		for userID, p := range users {
			amount, ok := byUser[userID]
			if !ok {
				amount = decimal.Zero
			}
			p.Spent = amount
			p.UpdatedAt = at
			users[userID] = p
		}
		return nil
	})
}
