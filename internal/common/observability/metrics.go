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
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	taskCounter     otelmetric.Int64Counter
	taskDuration    otelmetric.Float64Histogram
	degradedCounter otelmetric.Int64Counter
	deadLetterCount otelmetric.Int64Counter
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

	taskCounter, _ := meter.Int64Counter(
		"pipeline.tasks.processed",
		otelmetric.WithDescription("Number of pipeline tasks processed"),
	)

	taskDuration, _ := meter.Float64Histogram(
		"pipeline.tasks.duration",
		otelmetric.WithDescription("Pipeline task processing duration"),
		otelmetric.WithUnit("ms"),
	)

	degradedCounter, _ := meter.Int64Counter(
		"pipeline.responses.degraded",
		otelmetric.WithDescription("Number of responses produced via a fallback path"),
	)

	deadLetterCount, _ := meter.Int64Counter(
		"pipeline.tasks.deadlettered",
		otelmetric.WithDescription("Number of tasks sent to the dead-letter list"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		taskCounter:     taskCounter,
		taskDuration:    taskDuration,
		degradedCounter: degradedCounter,
		deadLetterCount: deadLetterCount,
	}
}

func (o *Observability) RecordTaskProcessed(ctx context.Context, kind, status string) {
	if o.taskCounter != nil {
		o.taskCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordTaskDuration(ctx context.Context, kind string, duration time.Duration) {
	if o.taskDuration != nil {
		o.taskDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("kind", kind),
		))
	}
}

// RecordDegraded marks one degraded-mode response so fallback usage is
// distinguishable in telemetry.
func (o *Observability) RecordDegraded(ctx context.Context, component, stage string) {
	if o.degradedCounter != nil {
		o.degradedCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("component", component),
			attribute.String("stage", stage),
		))
	}
}

func (o *Observability) RecordDeadLetter(ctx context.Context, kind string) {
	if o.deadLetterCount != nil {
		o.deadLetterCount.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
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
