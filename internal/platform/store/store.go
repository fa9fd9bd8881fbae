// Package store provides the Postgres handle backing the audit journal,
// built on pgxpool with slow-query tracing
package store

import (
	"context"
	"time"

	perr "challengeutils/internal/platform/errors"
	"challengeutils/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the Postgres pool
type Config struct {
	URL      string
	MaxConns int32
	SlowMs   int
}

// Store is a postgres client with pool and query tracing
type Store struct {
	Pool   *pgxpool.Pool
	log    logger.Logger
	slowMs int
}

var newPool = pgxpool.NewWithConfig

// Open creates a new Store with the given config
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "store parse pg url")
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, perr.FromPostgres(err, "store open pool")
	}
	if cfg.SlowMs <= 0 {
		cfg.SlowMs = 500
	}
	return &Store{
		Pool:   pool,
		log:    *logger.Named("store"),
		slowMs: cfg.SlowMs,
	}, nil
}

// Close closes the pool
func (s *Store) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

// Exec runs a statement with slow-query logging
func (s *Store) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := s.Pool.Exec(ctx, sql, args...)
	s.trace(sql, time.Since(start), err)
	return tag, perr.FromPostgres(err, "store exec")
}

// Query runs a query with slow-query logging
func (s *Store) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := s.Pool.Query(ctx, sql, args...)
	s.trace(sql, time.Since(start), err)
	return rows, perr.FromPostgres(err, "store query")
}

func (s *Store) trace(sql string, elapsed time.Duration, err error) {
	ms := float64(elapsed.Microseconds()) / 1000.0
	evt := s.log.Debug()
	if int(elapsed.Milliseconds()) >= s.slowMs {
		evt = s.log.Warn().Bool("slow", true)
	}
	evt.Float64("elapsed_ms", ms).Str("sql", compact(sql)).Err(err).Msg("pg query")
}

// compact collapses whitespace so multi-line SQL logs on one line
func compact(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || r == ' ' {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		space = false
		out = append(out, r)
	}
	return string(out)
}
