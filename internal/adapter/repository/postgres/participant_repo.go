package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/budgetledger/internal/domain"
	"github.com/iho/budgetledger/internal/usecase"
)

const participantColumns = `envelope_id, user_id, role, budget_assigned, spent, created_at, updated_at`

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	db querier
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: pool}
}

// Find returns one participant of an envelope.
func (r *ParticipantRepository) Find(ctx context.Context, envelopeID, userID string) (*domain.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM envelope_participants WHERE envelope_id = $1 AND user_id = $2`

	p, err := scanParticipant(r.db.QueryRow(ctx, query, envelopeID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	return p, err
}

// ListByEnvelope lists participants ordered by join time.
func (r *ParticipantRepository) ListByEnvelope(ctx context.Context, envelopeID string) ([]*domain.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM envelope_participants
		WHERE envelope_id = $1
		ORDER BY created_at, user_id
	`

	rows, err := r.db.Query(ctx, query, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// Create adds a participant.
func (r *ParticipantRepository) Create(ctx context.Context, tx usecase.Tx, p *domain.Participant) error {
	query := `
		INSERT INTO envelope_participants (envelope_id, user_id, role, budget_assigned, spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := txQuerier(tx).Exec(ctx, query,
		p.EnvelopeID,
		p.UserID,
		string(p.Role),
		decimalToNumeric(p.BudgetAssigned),
		decimalToNumeric(p.Spent),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateParticipant
	}

	return err
}

// Delete removes a participant.
func (r *ParticipantRepository) Delete(ctx context.Context, tx usecase.Tx, envelopeID, userID string) error {
	tag, err := txQuerier(tx).Exec(ctx,
		`DELETE FROM envelope_participants WHERE envelope_id = $1 AND user_id = $2`,
		envelopeID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}

	return nil
}

// SyncSpent overwrites every participant's spent from spending. Users
// absent from spending get zero.
func (r *ParticipantRepository) SyncSpent(ctx context.Context, tx usecase.Tx, envelopeID string, spending []domain.UserSpending, at time.Time) error {
	users := make([]string, len(spending))
	amounts := make([]pgtype.Numeric, len(spending))
	for i, s := range spending {
		users[i] = s.UserID
		amounts[i] = decimalToNumeric(s.Amount)
	}

	query := `
		UPDATE envelope_participants p
		SET spent = COALESCE((
				SELECT s.amount
				FROM unnest($2::text[], $3::numeric[]) AS s(user_id, amount)
				WHERE s.user_id = p.user_id
			), 0),
			updated_at = $4
		WHERE p.envelope_id = $1
	`

	_, err := txQuerier(tx).Exec(ctx, query, envelopeID, users, amounts, at)
	return err
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var (
		p             domain.Participant
		role          string
		budget, spent pgtype.Numeric
	)

	err := row.Scan(&p.EnvelopeID, &p.UserID, &role, &budget, &spent, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Role = domain.ParticipantRole(role)
	p.BudgetAssigned = numericToDecimal(budget)
	p.Spent = numericToDecimal(spent)

	return &p, nil
}
