package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Transactor runs fn inside a single transaction. Repositories bind to the
// Querier passed to fn through their WithTx method.
type Transactor interface {
	WithTx(ctx context.Context, fn func(Querier) error) error
}

// SnapshotReader runs fn against one point-in-time view of the data, so
// several reads see the same set of committed writes.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(Querier) error) error
}

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	zap.L().Info("Initializing database connection pool")
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		zap.L().Error("Failed to create connection pool", zap.Error(err))
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		zap.L().Error("Failed to ping database", zap.Error(err))
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	zap.L().Info("Database connection established successfully")
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	zap.L().Info("Closing database connection pool")
	db.Pool.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

func (db *DB) WithTx(ctx context.Context, fn func(Querier) error) error {
	return db.runTx(ctx, pgx.TxOptions{}, fn)
}

// ReadSnapshot runs fn in a read-only REPEATABLE READ transaction.
func (db *DB) ReadSnapshot(ctx context.Context, fn func(Querier) error) error {
	return db.runTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (db *DB) runTx(ctx context.Context, opts pgx.TxOptions, fn func(Querier) error) (err error) {
	txID := uuid.New().String()
	startTime := time.Now()
	log := zap.L().With(zap.String("tx_id", txID), zap.String("access", string(opts.AccessMode)))

	tx, err := db.Pool.BeginTx(ctx, opts)
	if err != nil {
		log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("Recovered from panic in transaction", zap.Any("panic", p))
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			log.Debug("Rolling back transaction", zap.Error(err))
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		log.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("committing transaction: %w", err)
	}

	log.Debug("Transaction committed", zap.Duration("duration", time.Since(startTime)))
	return nil
}
