package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	webhookEvents      metric.Int64Counter
	ledgerTransactions metric.Int64Counter
	generations        metric.Int64Counter
	anomalies          metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
	jobRuns            metric.Int64Counter
	jobDuration        metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "dreamforge"
	}
	meter := provider.Meter(name)

	webhookEvents, err := meter.Int64Counter("dreamforge_webhook_events_total")
	if err != nil {
		return nil, err
	}
	ledgerTransactions, err := meter.Int64Counter("dreamforge_ledger_transactions_total")
	if err != nil {
		return nil, err
	}
	generations, err := meter.Int64Counter("dreamforge_generations_total")
	if err != nil {
		return nil, err
	}
	anomalies, err := meter.Int64Counter("dreamforge_reconciliation_anomalies_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("dreamforge_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}
	jobRuns, err := meter.Int64Counter("dreamforge_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("dreamforge_scheduler_job_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		webhookEvents:      webhookEvents,
		ledgerTransactions: ledgerTransactions,
		generations:        generations,
		anomalies:          anomalies,
		rateLimitDenied:    rateLimitDenied,
		jobRuns:            jobRuns,
		jobDuration:        jobDuration,
	}, nil
}

// RecordWebhookEvent counts inbound webhook deliveries by their final outcome.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordLedgerTransaction(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.ledgerTransactions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordGeneration(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.generations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordAnomaly(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.anomalies.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordJobRun counts scheduler job runs by outcome and observes their duration.
func (m *Metrics) RecordJobRun(ctx context.Context, job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	jobAttr := attribute.String("job", strings.TrimSpace(job))
	attrs := FilterAttributes(jobAttr, attribute.String("outcome", strings.TrimSpace(outcome)))
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(FilterAttributes(jobAttr)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"provider":    {},
	"outcome":     {},
	"reason":      {},
	"kind":        {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
