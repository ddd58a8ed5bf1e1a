package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	callCounter   otelmetric.Int64Counter
	callDuration  otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	callCounter, _ := meter.Int64Counter(
		"partner.calls",
		otelmetric.WithDescription("Number of partner API calls"),
	)

	callDuration, _ := meter.Float64Histogram(
		"partner.call.duration",
		otelmetric.WithDescription("Partner API call duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		callCounter:   callCounter,
		callDuration:  callDuration,
	}
}

func (o *Observability) RecordPartnerCall(ctx context.Context, partner, status string) {
	if o.callCounter != nil {
		o.callCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("partner", partner),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordCallDuration(ctx context.Context, partner string, duration time.Duration) {
	if o.callDuration != nil {
		o.callDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("partner", partner),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
