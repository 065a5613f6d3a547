package telemetry

import (
	"context"
	"time"

	"github.com/fulfildesk/backend/internal/domain/fulfilment"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatusCounter reports how many orders sit in each status
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[fulfilment.OrderStatus]int64, error)
}

// FulfilmentMetrics holds the order lifecycle and sweep instruments.
// A nil *FulfilmentMetrics is valid and records nothing.
type FulfilmentMetrics struct {
	transitions   metric.Int64Counter
	conflicts     metric.Int64Counter
	sweepOutcomes metric.Int64Counter
	sweepDuration metric.Float64Histogram
	ordersByState metric.Int64ObservableGauge
}

// NewFulfilmentMetrics creates the instruments on meter. When counter is
// non-nil an observable gauge reports order counts per status on each
// collection.
func NewFulfilmentMetrics(meter metric.Meter, counter StatusCounter) (*FulfilmentMetrics, error) {
	m := &FulfilmentMetrics{}
	var err error

	m.transitions, err = meter.Int64Counter("order_transitions_total",
		metric.WithDescription("Order lifecycle transitions by action"),
		metric.WithUnit("{transition}"))
	if err != nil {
		return nil, err
	}
	m.conflicts, err = meter.Int64Counter("order_version_conflicts_total",
		metric.WithDescription("Writes rejected because the order changed concurrently"),
		metric.WithUnit("{conflict}"))
	if err != nil {
		return nil, err
	}
	m.sweepOutcomes, err = meter.Int64Counter("sweep_orders_total",
		metric.WithDescription("Orders handled by background sweeps by outcome"),
		metric.WithUnit("{order}"))
	if err != nil {
		return nil, err
	}
	m.sweepDuration, err = meter.Float64Histogram("sweep_duration_seconds",
		metric.WithDescription("Duration of one background sweep run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60))
	if err != nil {
		return nil, err
	}

	if counter != nil {
		m.ordersByState, err = meter.Int64ObservableGauge("orders_by_status",
			metric.WithDescription("Current number of orders per status"),
			metric.WithUnit("{order}"))
		if err != nil {
			return nil, err
		}
		_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			counts, err := counter.CountByStatus(ctx)
			if err != nil {
				return err
			}
			for _, s := range fulfilment.AllOrderStatuses {
				o.ObserveInt64(m.ordersByState, counts[s], metric.WithAttributes(attribute.String("status", string(s))))
			}
			return nil
		}, m.ordersByState)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordTransition counts one successful transition
func (m *FulfilmentMetrics) RecordTransition(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordConflict counts one lost optimistic-lock race
func (m *FulfilmentMetrics) RecordConflict(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// SweepResult summarises one sweep run
type SweepResult struct {
	Job       string
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// RecordSweep records the outcome counts and duration of a sweep run
func (m *FulfilmentMetrics) RecordSweep(ctx context.Context, r SweepResult) {
	if m == nil {
		return
	}
	job := attribute.String("job", r.Job)
	for outcome, n := range map[string]int{"processed": r.Processed, "skipped": r.Skipped, "failed": r.Failed} {
		if n > 0 {
			m.sweepOutcomes.Add(ctx, int64(n), metric.WithAttributes(job, attribute.String("outcome", outcome)))
		}
	}
	m.sweepDuration.Record(ctx, r.Duration.Seconds(), metric.WithAttributes(job))
}
