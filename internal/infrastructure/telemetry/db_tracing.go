package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	LogFullSQL      bool          // include bind variables in spans; development only
	SlowQueryThresh time.Duration // queries above this get db.slow_query=true
}

// RegisterDBTracing installs otelgorm plus callbacks that tag each span
// with the table, rows affected, errors and slow query markers.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(db.Name())}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateSpan(tx, cfg.SlowQueryThresh) }

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("reconcile_trace:before_create", before),
		cb.Create().After("gorm:create").Register("reconcile_trace:after_create", after),
		cb.Query().Before("gorm:query").Register("reconcile_trace:before_query", before),
		cb.Query().After("gorm:query").Register("reconcile_trace:after_query", after),
		cb.Update().Before("gorm:update").Register("reconcile_trace:before_update", before),
		cb.Update().After("gorm:update").Register("reconcile_trace:after_update", after),
		cb.Delete().Before("gorm:delete").Register("reconcile_trace:before_delete", before),
		cb.Delete().After("gorm:delete").Register("reconcile_trace:after_delete", after),
		cb.Raw().Before("gorm:raw").Register("reconcile_trace:before_raw", before),
		cb.Raw().After("gorm:raw").Register("reconcile_trace:after_raw", after),
		cb.Row().Before("gorm:row").Register("reconcile_trace:before_row", before),
		cb.Row().After("gorm:row").Register("reconcile_trace:after_row", after),
	)
}

func annotateSpan(tx *gorm.DB, slowThresh time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}

	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok || slowThresh <= 0 {
		return
	}
	if elapsed := time.Since(start); elapsed > slowThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
	}
}
