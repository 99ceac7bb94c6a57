package plan

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "field-mapper/plan"

// metrics records run counters. Without an installed provider every
// instrument is a no-op.
type metrics struct {
	runs      metric.Int64Counter
	fields    metric.Int64Counter
	cacheHits metric.Int64Counter
	duration  metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var (
		m   metrics
		err error
	)

	m.runs, err = meter.Int64Counter("field_mapper.runs.total",
		metric.WithDescription("Total number of mapping runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.fields, err = meter.Int64Counter("field_mapper.fields.total",
		metric.WithDescription("Resolved target fields by status"),
		metric.WithUnit("{field}"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheHits, err = meter.Int64Counter("field_mapper.cache.hits",
		metric.WithDescription("Mapping runs served from the result cache"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram("field_mapper.run.duration",
		metric.WithDescription("Mapping run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *metrics) recordRun(ctx context.Context, res *Result, d time.Duration) {
	scope := metric.WithAttributes(
		attribute.String("manufacturer", res.Manufacturer),
		attribute.String("template", res.Template),
	)

	m.runs.Add(ctx, 1, scope)
	m.duration.Record(ctx, d.Seconds(), scope)

	counts := map[Status]int{}
	for _, f := range res.Fields {
		counts[f.Status]++
	}

	for st, n := range counts {
		m.fields.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("manufacturer", res.Manufacturer),
			attribute.String("status", st.String()),
		))
	}
}

func (m *metrics) recordCacheHit(ctx context.Context, manufacturer string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("manufacturer", manufacturer)))
}
