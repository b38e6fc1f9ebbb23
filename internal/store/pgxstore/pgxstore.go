// Package pgxstore provides the "pgx" store.Driver: the same Postgres schema as
// the sqlx driver, accessed through a jackc/pgx connection pool.
package pgxstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/migrations"
)

const forUpdate = " FOR UPDATE"

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func init() {
	store.Register(config.DriverPGX, open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &store.Repositories{
		Teams:    NewTeamRepo(pool, clk),
		Players:  NewPlayerRepo(pool, clk),
		Auctions: NewAuctionRepo(pool, clk),
		RunInTx:  TxRunner(pool, clk),
		Closer: store.CloserFunc(func() error {
			pool.Close()
			return nil
		}),
		Ping: pool.Ping,
	}, nil
}

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, migrations.Initial); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// TxRunner returns a store.Repositories.RunInTx implementation for pool.
func TxRunner(pool *pgxpool.Pool, clk clock.Clock) func(ctx context.Context, fn func(tx store.Tx) error) error {
	return func(ctx context.Context, fn func(tx store.Tx) error) error {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(store.Tx{
			Teams:    &TeamRepo{db: tx, clock: clk, lock: forUpdate},
			Players:  &PlayerRepo{db: tx, clock: clk, lock: forUpdate},
			Auctions: &AuctionRepo{db: tx, clock: clk, lock: forUpdate},
		}); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	}
}

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
