package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/itt1233/augeo/internal/metrics"
)

// MetricsTracer implements pgx.QueryTracer to collect database metrics.
type MetricsTracer struct{}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

type queryContextKey struct{}

type queryContext struct {
	startTime time.Time
	queryName string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	qctx := queryContext{
		startTime: time.Now(),
		queryName: extractQueryName(data.SQL),
	}
	return context.WithValue(ctx, queryContextKey{}, qctx)
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	duration := time.Since(qctx.startTime).Seconds()
	metrics.DBQueryDuration.WithLabelValues(qctx.queryName).Observe(duration)

	if data.Err != nil {
		metrics.DBErrorsTotal.WithLabelValues(qctx.queryName).Inc()
	}
}

// extractQueryName reduces SQL to its leading keyword so metric labels stay
// low-cardinality.
func extractQueryName(sql string) string {
	if len(sql) == 0 {
		return "unknown"
	}

	for i, c := range sql {
		if c == ' ' || c == '\n' || c == '\t' {
			if i > 0 {
				return sql[:i]
			}
			break
		}
	}

	if len(sql) > 20 {
		return sql[:20]
	}
	return sql
}
