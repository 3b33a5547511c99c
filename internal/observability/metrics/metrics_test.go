package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("provider", "paddle"),
		attribute.String("account_id", "user-1"),
		attribute.String("outcome", "applied"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("provider"), attrs[0].Key)
	assert.Equal(t, attribute.Key("outcome"), attrs[1].Key)
}

func TestRecordersTolerateNilMetrics(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordWebhookEvent(ctx, "paddle", "applied")
		m.RecordLedgerTransaction(ctx, "purchase")
		m.RecordGeneration(ctx, "succeeded")
		m.RecordAnomaly(ctx, "balance_drift")
		m.RecordRateLimitDenied(ctx, "/api/dreams")
		m.RecordJobRun(ctx, "reconcile_balances", "ok", time.Second)
	})
}

func TestNewBuildsInstrumentsOnNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "dreamforge"}, noop.NewMeterProvider())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.RecordWebhookEvent(context.Background(), "lemonsqueezy", "duplicate")
	})
}
