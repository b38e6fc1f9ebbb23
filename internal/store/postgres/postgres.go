// Package postgres provides the "sqlx" store.Driver: Postgres accessed through
// jmoiron/sqlx over lib/pq, instrumented with otelsql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/cricket-auction/internal/clock"
	"github.com/jensholdgaard/cricket-auction/internal/config"
	"github.com/jensholdgaard/cricket-auction/internal/store"
	"github.com/jensholdgaard/cricket-auction/internal/store/migrations"
)

// forUpdate is appended to single-row reads made inside a transaction so the
// row stays locked until commit.
const forUpdate = " FOR UPDATE"

func init() {
	store.Register(config.DriverSQLX, open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &store.Repositories{
		Teams:    NewTeamRepo(db, clk),
		Players:  NewPlayerRepo(db, clk),
		Auctions: NewAuctionRepo(db, clk),
		RunInTx:  TxRunner(db, clk),
		Closer:   db,
		Ping:     db.PingContext,
	}, nil
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}

	return db, nil
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, migrations.Initial); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// TxRunner returns a store.Repositories.RunInTx implementation for db.
func TxRunner(db *sqlx.DB, clk clock.Clock) func(ctx context.Context, fn func(tx store.Tx) error) error {
	return func(ctx context.Context, fn func(tx store.Tx) error) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(store.Tx{
			Teams:    &TeamRepo{db: tx, clock: clk, lock: forUpdate},
			Players:  &PlayerRepo{db: tx, clock: clk, lock: forUpdate},
			Auctions: &AuctionRepo{db: tx, clock: clk, lock: forUpdate},
		}); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	}
}

// Postgres error codes translated into store errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// translate maps driver errors onto store sentinel errors.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pqErr.Constraint)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", store.ErrNotFound, pqErr.Constraint)
		}
	}
	return err
}

func affected(result sql.Result) int64 {
	n, _ := result.RowsAffected()
	return n
}
