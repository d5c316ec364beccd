// Package pool opens and sizes the shared database/sql connection pool.
package pool

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultPingTimeout bounds the connectivity check made by Open.
const DefaultPingTimeout = 5 * time.Second

// Pool is the subset of *sql.DB the query layer runs on.
type Pool interface {
	Close() error
	PingContext(ctx context.Context) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Stats() sql.DBStats
}

// Config sizes the pool. Zero values keep the database/sql defaults.
type Config struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// StdPool wraps *sql.DB.
type StdPool struct {
	*sql.DB
}

func NewStdPool(db *sql.DB) *StdPool {
	return &StdPool{db}
}

// Open opens driver/dsn, applies cfg and checks the database answers.
// A pool that fails the check is closed before returning.
func Open(driver, dsn string, cfg Config) (*StdPool, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	p := NewStdPool(sqlDB)
	p.apply(cfg)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.PingContext(ctx); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return p, nil
}

func (p *StdPool) apply(cfg Config) {
	if cfg.MaxOpenConns > 0 {
		p.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		p.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		p.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
