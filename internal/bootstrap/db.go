package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBOptions configures the history database pool. Zero pool sizes keep
// the pgxpool defaults.
type DBOptions struct {
	DSN       string
	ConnectTO time.Duration
	PingTO    time.Duration

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// OpenDB connects a pgx pool and pings it before returning.
func OpenDB(ctx context.Context, opt DBOptions) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(opt)
	if err != nil {
		return nil, err
	}
	if opt.ConnectTO == 0 {
		opt.ConnectTO = 5 * time.Second
	}
	if opt.PingTO == 0 {
		opt.PingTO = 2 * time.Second
	}

	cctx, cancel := context.WithTimeout(ctx, opt.ConnectTO)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pctx, pcancel := context.WithTimeout(ctx, opt.PingTO)
	defer pcancel()

	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return pool, nil
}

func poolConfig(opt DBOptions) (*pgxpool.Config, error) {
	if opt.DSN == "" {
		return nil, fmt.Errorf("database connection string is not set")
	}
	cfg, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}
	if opt.MaxConns > 0 {
		cfg.MaxConns = opt.MaxConns
	}
	if opt.MinConns > 0 {
		cfg.MinConns = opt.MinConns
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("db config: min conns %d exceeds max conns %d", cfg.MinConns, cfg.MaxConns)
	}
	if opt.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opt.MaxConnLifetime
	}
	return cfg, nil
}
