package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistererRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegisterer(registry)

	m.RecordTransaction("GASTO")
	m.RecordTransfer("real_to_real")
	m.RecordWarning("OVERSPEND_SOBRE")
	m.RecordBudgetChange("increase")
	m.RecordFailure("transaction.create", "validation")
	m.ObserveOperation("transaction.create", 20*time.Millisecond)
	m.RecordOutboxEvent("transaction.created", "published")
	m.RecordRateLimited()

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 8)
}

func TestRecordersIncrementLabels(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RecordTransaction("GASTO")
	m.RecordTransaction("GASTO")
	m.RecordTransaction("INGRESO")
	m.RecordFailure("wallet.delete", "business_rule")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransactionsCreated.WithLabelValues("GASTO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsCreated.WithLabelValues("INGRESO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationFailures.WithLabelValues("wallet.delete", "business_rule")))
}
