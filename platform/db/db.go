// Package db opens the Postgres pool and holds the small helpers the
// repositories share.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medcrm_backend/platform/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"
	applicationName   = "medcrm"
)

type poolSettings struct {
	maxConns, minConns int32
	maxLifetime        time.Duration
	maxIdle            time.Duration
	healthCheck        time.Duration
}

var defaultPool = poolSettings{
	maxConns:    25,
	minConns:    5,
	maxLifetime: time.Hour,
	maxIdle:     30 * time.Minute,
	healthCheck: time.Minute,
}

// NewPool connects and pings before returning, so a bad DATABASE_URL fails at startup.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pc, err := parsePoolConfig(cfg.GetDatabaseURL(), defaultPool)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func parsePoolConfig(url string, s poolSettings) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pc.MaxConns = s.maxConns
	pc.MinConns = s.minConns
	pc.MaxConnLifetime = s.maxLifetime
	pc.MaxConnIdleTime = s.maxIdle
	pc.HealthCheckPeriod = s.healthCheck
	if _, ok := pc.ConnConfig.RuntimeParams["application_name"]; !ok {
		pc.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	return pc, nil
}

// PoolAdapter exposes the pool as a readiness probe.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn in a read-committed transaction, committing only when fn
// returns nil.
func WithTx(ctx context.Context, b TxBeginner, fn func(pgx.Tx) error) error {
	tx, err := b.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// no-op after a successful commit
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique_violation, limited to
// constraint when it is not empty.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into a pattern for `ILIKE $n ESCAPE '\'`
// that matches the text literally anywhere in the column.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
