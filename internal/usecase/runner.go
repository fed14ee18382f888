package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/budgetledger/internal/domain"
)

// txRunner runs a unit of work inside one database transaction, retrying
// deadlocks and serialization failures when a Retrier is configured.
type txRunner struct {
	txManager TxManager
	retrier   Retrier
	metrics   MetricsRecorder
	outbox    OutboxRepository
	idGen     IDGenerator
}

func (r *txRunner) run(ctx context.Context, operation string, fn func(ctx context.Context, tx Tx) error) error {
	start := time.Now()

	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := r.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	var err error
	if r.retrier != nil {
		err = r.retrier.Retry(ctx, attempt)
	} else {
		err = attempt()
	}

	m := r.recorder()
	m.ObserveOperation(operation, time.Since(start))
	if err != nil {
		kind := domain.KindOf(err)
		m.RecordFailure(operation, string(kind))
		if kind == domain.KindInternal {
			zerolog.Ctx(ctx).Error().Err(err).Str("operation", operation).Msg("ledger operation failed")
		}
	}

	return err
}

// emit writes an outbox event in the caller's transaction. Without an
// outbox repository events are dropped.
func (r *txRunner) emit(ctx context.Context, tx Tx, aggregateType, aggregateID, eventType string, payload any) error {
	if r.outbox == nil {
		return nil
	}

	return r.outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            r.idGen.Generate(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.Payload(payload),
		CreatedAt:     time.Now().UTC(),
	})
}

func (r *txRunner) recorder() MetricsRecorder {
	if r.metrics == nil {
		return noopMetrics{}
	}
	return r.metrics
}

type noopMetrics struct{}

func (noopMetrics) RecordTransaction(string)               {}
func (noopMetrics) RecordTransfer(string)                  {}
func (noopMetrics) RecordWarning(string)                   {}
func (noopMetrics) RecordBudgetChange(string)              {}
func (noopMetrics) RecordFailure(string, string)           {}
func (noopMetrics) ObserveOperation(string, time.Duration) {}

func now() time.Time {
	return time.Now().UTC()
}
