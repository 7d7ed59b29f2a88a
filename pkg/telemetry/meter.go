package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/waterworks/internal/config"
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

// NewMeterProvider configures and registers the OTLP meter provider.
// Without an endpoint a no-op provider is installed.
func NewMeterProvider(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (metric.MeterProvider, error) {
	if cfg.OTLPEndpoint == "" {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newMetricExporter(cfg.OTLPProtocol, cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down meter provider")
			return provider.Shutdown(ctx)
		},
	})

	return provider, nil
}

// LedgerInstruments carries the OTel counters the posting path records.
type LedgerInstruments struct {
	entries metric.Int64Counter
}

func NewLedgerInstruments(cfg config.Config, provider metric.MeterProvider) (*LedgerInstruments, error) {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "waterworks"
	}
	meter := provider.Meter(name)

	entries, err := meter.Int64Counter("waterworks_ledger_entries_total")
	if err != nil {
		return nil, err
	}
	return &LedgerInstruments{entries: entries}, nil
}

// RecordEntry counts one journal row by transaction type.
func (i *LedgerInstruments) RecordEntry(ctx context.Context, transactionType string) {
	if i == nil {
		return
	}
	i.entries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transaction_type", strings.TrimSpace(transactionType)),
	))
}

func newMetricExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(), otlpmetrichttp.WithEndpoint(endpoint))
	case "grpc", "grpc/protobuf", "":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithEndpoint(endpoint),
		)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
