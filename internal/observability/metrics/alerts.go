package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	alertsMeterName = "tradertime.alerts"
)

// AlertMetrics records scheduler activity. A nil *AlertMetrics is valid and records nothing.
type AlertMetrics struct {
	armed        metric.Int64Counter
	armFailures  metric.Int64Counter
	fired        metric.Int64Counter
	suppressed   metric.Int64Counter
	ringDuration metric.Float64Histogram
}

func NewAlertMetrics() (*AlertMetrics, error) {
	return NewAlertMetricsWithMeter(otel.Meter(alertsMeterName))
}

func NewAlertMetricsWithMeter(meter metric.Meter) (*AlertMetrics, error) {
	armed, err := meter.Int64Counter(
		"alerts_armed_total",
		metric.WithDescription("Total number of alert occurrences armed"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	armFailures, err := meter.Int64Counter(
		"alerts_arm_failures_total",
		metric.WithDescription("Total number of arm attempts that left the alert unarmed"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	fired, err := meter.Int64Counter(
		"alerts_fired_total",
		metric.WithDescription("Total number of alerts delivered"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	suppressed, err := meter.Int64Counter(
		"alerts_suppressed_total",
		metric.WithDescription("Total number of matched alerts not delivered"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	ringDuration, err := meter.Float64Histogram(
		"alarm_ring_duration_seconds",
		metric.WithDescription("How long an exact alarm rang before it was stopped or snoozed"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	return &AlertMetrics{
		armed:        armed,
		armFailures:  armFailures,
		fired:        fired,
		suppressed:   suppressed,
		ringDuration: ringDuration,
	}, nil
}

func (m *AlertMetrics) RecordArmed(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.armed.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

func (m *AlertMetrics) RecordArmFailure(ctx context.Context, path, reason string) {
	if m == nil {
		return
	}
	m.armFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.String("reason", reason),
	))
}

func (m *AlertMetrics) RecordFired(ctx context.Context, path string, fixed bool) {
	if m == nil {
		return
	}
	m.fired.Add(ctx, 1, metric.WithAttributes(
		attribute.String("path", path),
		attribute.Bool("fixed", fixed),
	))
}

func (m *AlertMetrics) RecordSuppressed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.suppressed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *AlertMetrics) RecordRingDuration(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ringDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
