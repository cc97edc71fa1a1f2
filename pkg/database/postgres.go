package database

import (
	"context"
	"fmt"
	"time"

	"cleaning-booking/pkg/utils"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	trmanager "github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxIface is what repositories need to run SQL. Inside a unit of work it is
// backed by the transaction, outside by the pool.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Executor hands out the connection a repository should use for ctx.
type Executor interface {
	Conn(ctx context.Context) PgxIface
}

// DB wraps the pool together with the transaction manager bound to it.
type DB struct {
	pool    *pgxpool.Pool
	manager *trmanager.Manager
	getter  *trmpgx.CtxGetter
}

// Conn returns the transaction stored in ctx, or the pool.
func (db *DB) Conn(ctx context.Context) PgxIface {
	return db.getter.DefaultTrOrDB(ctx, db.pool)
}

// Do runs fn in a single transaction. Nested calls join the outer one.
func (db *DB) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.manager.Do(ctx, fn)
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() {
	db.pool.Close()
}

// InitDB opens the pool and prepares the transaction manager.
func InitDB(config utils.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable host=%s port=%s",
		config.User, config.Password, config.Name, config.Host, config.Port)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// Pool configuration
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database failed: %w", err)
	}

	manager, err := trmanager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create transaction manager: %w", err)
	}

	return &DB{
		pool:    pool,
		manager: manager,
		getter:  trmpgx.DefaultCtxGetter,
	}, nil
}
