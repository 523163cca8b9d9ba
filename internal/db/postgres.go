package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"backend-mapssaver/internal/config"
)

var (
	newPoolFn  = pgxpool.NewWithConfig
	pingPoolFn = func(ctx context.Context, pool *pgxpool.Pool) error { return pool.Ping(ctx) }
)

// ConnectPostgres opens and pings a pool. Queries are traced at debug level
// when log is not nil.
func ConnectPostgres(cfg config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if log != nil {
		poolCfg.ConnConfig.Tracer = &queryTracer{log: log.Sugar()}
	}

	pool, err := newPoolFn(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pingPoolFn(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type queryTracer struct {
	log *zap.SugaredLogger
}

type traceStartKey struct{}

func (t *queryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	t.log.Debugw("Executing", "sql", data.SQL, "args", len(data.Args))
	return context.WithValue(ctx, traceStartKey{}, time.Now())
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	fields := []any{"command", data.CommandTag.String()}
	if start, ok := ctx.Value(traceStartKey{}).(time.Time); ok {
		fields = append(fields, "duration", time.Since(start))
	}
	if data.Err != nil {
		t.log.Debugw("Query failed", append(fields, "error", data.Err)...)
		return
	}
	t.log.Debugw("Query done", fields...)
}
