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
	ordersPlaced     metric.Int64Counter
	settlements      metric.Int64Counter
	payments         metric.Int64Counter
	sequenceIssued   metric.Int64Counter
	conflicts        metric.Int64Counter
	cutoffTransition metric.Int64Counter
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
		lc.Append(fx.StopHook(provider.Shutdown))
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New registers the domain counters on the service meter.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tradebook"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.ordersPlaced, "tradebook_orders_placed_total", "Orders placed by side and phase."},
		{&m.settlements, "tradebook_settlements_total", "Orders settled into ledgers."},
		{&m.payments, "tradebook_payments_total", "Collections and payouts recorded."},
		{&m.sequenceIssued, "tradebook_sequence_issued_total", "Document numbers issued per domain."},
		{&m.conflicts, "tradebook_write_conflicts_total", "Optimistic write conflicts per operation."},
		{&m.cutoffTransition, "tradebook_cutoff_transitions_total", "Cutoff window transitions per action."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// NewNoop returns instruments bound to a noop provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordOrderPlaced(ctx context.Context, side, phase string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("side", strings.TrimSpace(side)),
		attribute.String("phase", strings.TrimSpace(phase)),
	)
	m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSettlement(ctx context.Context, side, phase string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("side", strings.TrimSpace(side)),
		attribute.String("phase", strings.TrimSpace(phase)),
	)
	m.settlements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayment(ctx context.Context, direction, method string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("direction", strings.TrimSpace(direction)),
		attribute.String("method", strings.TrimSpace(method)),
	)
	m.payments.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSequenceIssued(ctx context.Context, domain string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("domain", strings.TrimSpace(domain)))
	m.sequenceIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordConflict counts lost optimistic races per operation.
func (m *Metrics) RecordConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCutoffTransition(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.cutoffTransition.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
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
	"side":      {},
	"phase":     {},
	"direction": {},
	"method":    {},
	"domain":    {},
	"operation": {},
	"action":    {},
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
