/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package postgres realizes the Lifecycle & Upgrade container:
// a single-row core_state table holding the versioned JSON snapshot
// pkg/coordinator.Core.Snapshot/Restore produce and consume, goose-migrated
// and write-circuit-broken against a flapping database.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"time"

	faster "github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sony/gobreaker"

	"github.com/skillcore/coordinator/internal/apperrors"
	"github.com/skillcore/coordinator/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository is the snapshot read/write surface backing the Lifecycle &
// Upgrade container. Writes are wrapped in a circuit breaker so repeated
// database failures fail fast instead of piling up behind the snapshot
// writer.
type Repository struct {
	db *sqlx.DB
	cb *gobreaker.CircuitBreaker
}

// Open connects to Postgres per cfg, applying pool settings, and returns a
// Repository ready for Migrate/LoadLatest/SaveSnapshot.
func Open(cfg config.PostgresConfig) (*Repository, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.Internal, "opening postgres connection")
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "core_state_writer",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Repository{db: db, cb: cb}, nil
}

// Migrate runs every registered goose migration in order, aborting startup
// on the first failure.
func (r *Repository) Migrate() error {
	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.Wrapf(err, apperrors.Internal, "setting goose dialect")
	}
	if err := goose.Up(r.db.DB, "migrations"); err != nil {
		return apperrors.Wrapf(err, apperrors.Internal, "running core_state migrations")
	}
	return nil
}

// LoadLatest reads the single core_state row's snapshot JSON, or (nil, nil)
// on first boot with no prior snapshot — the post-start hook.
func (r *Repository) LoadLatest(ctx context.Context) ([]byte, int, error) {
	var row struct {
		SchemaVersion int    `db:"schema_version"`
		Snapshot      []byte `db:"snapshot"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT schema_version, snapshot FROM core_state WHERE id = 1`)
	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, apperrors.Wrapf(err, apperrors.Internal, "loading core_state snapshot")
	}
	return row.Snapshot, row.SchemaVersion, nil
}

// SaveSnapshot upserts the single core_state row with snapshot, behind the
// write circuit breaker — the pre-shutdown hook.
func (r *Repository) SaveSnapshot(ctx context.Context, schemaVersion int, snapshot []byte) error {
	_, err := r.cb.Execute(func() (any, error) {
		_, execErr := r.db.ExecContext(ctx, `
			INSERT INTO core_state (id, schema_version, snapshot, updated_at)
			VALUES (1, $1, $2, now())
			ON CONFLICT (id) DO UPDATE
			SET schema_version = EXCLUDED.schema_version,
			    snapshot = EXCLUDED.snapshot,
			    updated_at = now()
		`, schemaVersion, snapshot)
		return nil, execErr
	})
	if err != nil {
		return faster.Wrap(err, "saving core_state snapshot")
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}
