package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dbSystem = "postgresql"

type queryStartKey struct{}

// InstrumentDB registers the otelgorm plugin plus a callback pair marking
// slow queries on the active span. Query variables are stripped from spans
// unless full SQL logging is configured.
func InstrumentDB(db *gorm.DB, cfg config.TelemetryConfig, logger *zap.Logger) error {
	if !cfg.DBTraceEnabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(dbSystem)}
	if !cfg.DBLogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	sq := &slowQueryCallbacks{threshold: cfg.DBSlowQueryThresh}
	if err := sq.register(db); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("full_sql", cfg.DBLogFullSQL),
		zap.Duration("slow_query_threshold", cfg.DBSlowQueryThresh),
	)
	return nil
}

type slowQueryCallbacks struct {
	threshold time.Duration
}

func (s *slowQueryCallbacks) register(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op     string
		before func(string) error
		after  func(string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, s.before) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, s.after) }},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, s.before) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, s.after) }},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, s.before) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, s.after) }},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, s.before) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, s.after) }},
		{"row",
			func(n string) error { return cb.Row().Before("gorm:row").Register(n, s.before) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, s.after) }},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, s.before) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, s.after) }},
	}
	for _, step := range steps {
		if err := step.before("otel_timing:before_" + step.op); err != nil {
			return err
		}
		if err := step.after("otel_timing:after_" + step.op); err != nil {
			return err
		}
	}
	return nil
}

func (s *slowQueryCallbacks) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (s *slowQueryCallbacks) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || s.threshold <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > s.threshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", s.threshold.Milliseconds()),
		))
	}
}

// RegisterPoolMetrics exposes connection pool statistics as observable gauges
func RegisterPoolMetrics(meter metric.Meter, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	maxConns, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		st := sqlDB.Stats()
		o.ObserveInt64(conns, int64(st.InUse), metric.WithAttributes(attribute.String("state", "in_use")))
		o.ObserveInt64(conns, int64(st.Idle), metric.WithAttributes(attribute.String("state", "idle")))
		o.ObserveInt64(maxConns, int64(st.MaxOpenConnections))
		return nil
	}, conns, maxConns)
	return err
}
