package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/airsportlive/airsports-calculator-go/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

// WithTracer logs every statement at debug level.
func WithTracer(logger *log.Logger) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = &queryTracer{l: logger}
	}
}

//nolint:whitespace // keep signature grouping
func InitWithURL(
	ctx context.Context, url string, opts ...PoolConfigOption,
) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(dbConfig)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type queryTracer struct {
	l *log.Logger
}

//nolint:whitespace // keep signature grouping
func (tracer *queryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	tracer.l.Debug("executing", log.String("sql", data.SQL))
	return ctx
}

//nolint:whitespace // keep signature grouping
func (tracer *queryTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
}
