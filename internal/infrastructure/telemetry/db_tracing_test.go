package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type tracedRow struct {
	ID   uint
	Name string
}

func TestAnnotateSpan(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, RegisterDBTracing(db, DBTracingConfig{SlowQueryThresh: time.Nanosecond}))
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "request")

	// otelgorm opens child spans on the global provider; the parent span is
	// ours, so annotate it directly through a statement bound to ctx.
	tx := db.WithContext(ctx).Session(&gorm.Session{})
	tx.Statement.Table = "traced_rows"
	tx.Statement.RowsAffected = 3
	tx.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second))
	annotateSpan(tx, time.Millisecond)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := map[string]any{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(3), attrs["db.rows_affected"])
	assert.Equal(t, "traced_rows", attrs["db.sql.table"])
	assert.Equal(t, true, attrs["db.slow_query"])
}
