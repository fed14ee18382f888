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

const envelopeColumns = `id, name, type, currency_id, budget_assigned, spent, shared,
	max_participants, owner_id, version, created_at, updated_at`

// EnvelopeRepository implements usecase.EnvelopeRepository.
type EnvelopeRepository struct {
	db querier
}

// NewEnvelopeRepository creates a new EnvelopeRepository.
func NewEnvelopeRepository(pool *pgxpool.Pool) *EnvelopeRepository {
	return &EnvelopeRepository{db: pool}
}

// Create inserts a new envelope.
func (r *EnvelopeRepository) Create(ctx context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	query := `
		INSERT INTO envelopes (id, name, type, currency_id, budget_assigned, spent, shared,
			max_participants, owner_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := txQuerier(tx).Exec(ctx, query,
		envelope.ID,
		envelope.Name,
		string(envelope.Type),
		envelope.CurrencyID,
		decimalToNumeric(envelope.BudgetAssigned),
		decimalToNumeric(envelope.Spent),
		envelope.Shared,
		envelope.MaxParticipants,
		envelope.OwnerID,
		envelope.Version,
		envelope.CreatedAt,
		envelope.UpdatedAt,
	)

	return err
}

// GetByID retrieves an active envelope.
func (r *EnvelopeRepository) GetByID(ctx context.Context, id string) (*domain.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1 AND deleted_at IS NULL`
	return scanEnvelope(r.db.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an active envelope and locks its row.
func (r *EnvelopeRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Envelope, error) {
	query := `SELECT ` + envelopeColumns + ` FROM envelopes WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	return scanEnvelope(txQuerier(tx).QueryRow(ctx, query, id))
}

// GetByIDsForUpdate locks the active envelopes among ids in id order.
func (r *EnvelopeRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Tx, ids []string) ([]*domain.Envelope, error) {
	query := `
		SELECT ` + envelopeColumns + `
		FROM envelopes
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`

	rows, err := txQuerier(tx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return collectEnvelopes(rows)
}

// ListByOwner lists active envelopes ordered by id. A zero limit returns all.
func (r *EnvelopeRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Envelope, error) {
	query := `
		SELECT ` + envelopeColumns + `
		FROM envelopes
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY id
		LIMIT NULLIF($2, 0) OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectEnvelopes(rows)
}

// Update writes the envelope if its version is current and bumps the version.
func (r *EnvelopeRepository) Update(ctx context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	query := `
		UPDATE envelopes
		SET name = $3, type = $4, budget_assigned = $5, spent = $6, shared = $7,
			max_participants = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query,
		envelope.ID,
		envelope.Version,
		envelope.Name,
		string(envelope.Type),
		decimalToNumeric(envelope.BudgetAssigned),
		decimalToNumeric(envelope.Spent),
		envelope.Shared,
		envelope.MaxParticipants,
		envelope.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "envelopes", envelope.ID, domain.ErrEnvelopeNotFound)
	}

	envelope.Version++
	return nil
}

// SoftDelete marks the envelope deleted if its version is current.
func (r *EnvelopeRepository) SoftDelete(ctx context.Context, tx usecase.Tx, envelope *domain.Envelope) error {
	query := `
		UPDATE envelopes
		SET deleted_at = $3, updated_at = $3, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	if envelope.DeletedAt == nil {
		now := time.Now().UTC()
		envelope.DeletedAt = &now
	}

	q := txQuerier(tx)
	tag, err := q.Exec(ctx, query, envelope.ID, envelope.Version, *envelope.DeletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return versionMiss(ctx, q, "envelopes", envelope.ID, domain.ErrEnvelopeNotFound)
	}

	envelope.Version++
	return nil
}

// LinkCategories adds the categories missing from the envelope's links.
func (r *EnvelopeRepository) LinkCategories(ctx context.Context, tx usecase.Tx, envelopeID string, categoryIDs []string) error {
	query := `
		INSERT INTO envelope_categories (envelope_id, category_id, created_at)
		SELECT $1, category_id, $3
		FROM unnest($2::text[]) WITH ORDINALITY AS ids(category_id, position)
		ORDER BY position
		ON CONFLICT (envelope_id, category_id) DO NOTHING
	`

	_, err := txQuerier(tx).Exec(ctx, query, envelopeID, categoryIDs, time.Now().UTC())
	return err
}

// ListCategoryIDs lists the linked category ids in link order.
func (r *EnvelopeRepository) ListCategoryIDs(ctx context.Context, envelopeID string) ([]string, error) {
	query := `
		SELECT category_id
		FROM envelope_categories
		WHERE envelope_id = $1
		ORDER BY created_at, seq
	`

	rows, err := r.db.Query(ctx, query, envelopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanEnvelope(row pgx.Row) (*domain.Envelope, error) {
	e, err := scanEnvelopeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEnvelopeNotFound
	}
	return e, err
}

func scanEnvelopeRow(row pgx.Row) (*domain.Envelope, error) {
	var (
		e             domain.Envelope
		envelopeType  string
		budget, spent pgtype.Numeric
	)

	err := row.Scan(
		&e.ID,
		&e.Name,
		&envelopeType,
		&e.CurrencyID,
		&budget,
		&spent,
		&e.Shared,
		&e.MaxParticipants,
		&e.OwnerID,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = domain.EnvelopeType(envelopeType)
	e.BudgetAssigned = numericToDecimal(budget)
	e.Spent = numericToDecimal(spent)

	return &e, nil
}

func collectEnvelopes(rows pgx.Rows) ([]*domain.Envelope, error) {
	defer rows.Close()

	var envelopes []*domain.Envelope
	for rows.Next() {
		e, err := scanEnvelopeRow(rows)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, e)
	}

	return envelopes, rows.Err()
}
