// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/poiesic/legisearch/storage"
)

// pgForeignKeyViolation is the Postgres error code for FK violations.
const pgForeignKeyViolation = "23503"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Config holds connection settings for the Postgres backend.
type Config struct {
	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// Schema is the schema all fixed tables live in. Required.
	Schema string

	// MaxConns caps the connection pool size. Zero uses the pgxpool
	// default.
	MaxConns int32
}

// Validate checks the configuration. A missing connection string or an
// unsafe schema name is a startup-fatal configuration error.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required")
	}
	if c.Schema == "" {
		return errors.New("schema name is required")
	}
	if !identPattern.MatchString(c.Schema) {
		return fmt.Errorf("%w: schema %q", storage.ErrInvalidIdentifier, c.Schema)
	}
	return nil
}

// Backend implements storage.Backend on a pgx connection pool.
type Backend struct {
	pool   *pgxpool.Pool
	schema string
	logger *slog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// NewBackend connects to Postgres and returns a storage backend.
// pgvector types are registered on every pooled connection.
func NewBackend(ctx context.Context, cfg Config) (storage.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Backend{
		pool:   pool,
		schema: cfg.Schema,
		logger: slog.Default().With("component", "postgres"),
	}, nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// qualified returns the schema-qualified name of a fixed table.
// Only called with compile-time table name constants or names that
// passed validIdent.
func (b *Backend) qualified(table string) string {
	return b.schema + "." + table
}

// validIdent reports whether name is safe to interpolate into SQL as an
// identifier. Dynamic value-table names must pass this before use.
func validIdent(name string) bool {
	return identPattern.MatchString(name)
}

// isForeignKeyErr reports whether err is a Postgres FK violation.
func isForeignKeyErr(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// inTx runs fn inside a transaction, committing on success and rolling
// back on error.
func (b *Backend) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", storage.ErrTransactionFailed, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}
