// Package store implements the persistence layer: Postgres-backed tables for
// addresses, blocks, histories, subscriptions and events, plus the embedded
// schema migrations that create them.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgx5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps the connection pool shared by every table-specific store in
// this package. One Store is created per process.
type Store struct {
	Pool *pgxpool.Pool
	log  *logrus.Entry

	Addr     *AddressStore
	Block    *BlockStore
	Hist     *HistStore
	User     *UserStore
	UserAddr *UserAddrStore
	Event    *EventStore
	Stat     *StatStore
}

// NewStore connects to dsn and wires the table-specific stores against the
// shared pool.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{Pool: pool, log: logrus.WithField("component", "store")}
	s.Addr = &AddressStore{pool: pool}
	s.Block = &BlockStore{pool: pool}
	s.Hist = &HistStore{pool: pool}
	s.User = &UserStore{pool: pool}
	s.UserAddr = &UserAddrStore{pool: pool}
	s.Event = &EventStore{pool: pool}
	s.Stat = &StatStore{pool: pool}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// Migrate applies every embedded migration up to the latest version.
func (s *Store) Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("store: open for migration: %w", err)
	}
	defer db.Close()

	driver, err := pgx5.WithInstance(db, &pgx5.Config{})
	if err != nil {
		return fmt.Errorf("store: migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: migrations source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	s.log.Info("store: migrations applied")
	return nil
}
