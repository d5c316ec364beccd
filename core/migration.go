package core

import (
	"context"
	"fmt"
	"sort"
)

const migrationsTable = "schema_migrations"

// Migration is one versioned schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *DB) error
	Down        func(ctx context.Context, db *DB) error
}

// Migrator applies migrations and records them in schema_migrations.
type Migrator struct {
	db      *DB
	history map[int]bool
}

// NewMigrator creates a new Migrator instance.
func NewMigrator(db *DB) *Migrator {
	return &Migrator{
		db:      db,
		history: make(map[int]bool),
	}
}

// Init creates the history table and loads applied versions.
func (m *Migrator) Init(ctx context.Context) error {
	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		description TEXT,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, m.db.dialect.Quote(migrationsTable))
	if _, err := m.db.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("init migration table: %w", err)
	}

	rows, err := m.db.pool.QueryContext(ctx, "SELECT version FROM "+m.db.dialect.Quote(migrationsTable))
	if err != nil {
		return fmt.Errorf("fetch migration history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return err
		}
		m.history[version] = true
	}
	return rows.Err()
}

// Applied returns the applied versions in ascending order.
func (m *Migrator) Applied() []int {
	versions := make([]int, 0, len(m.history))
	for v := range m.history {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}

// Migrate applies pending migrations in version order. It returns the
// number applied.
//
// Steps are not wrapped in a transaction: MySQL commits DDL implicitly and
// a single-connection SQLite pool cannot run Up beside an open Tx.
func (m *Migrator) Migrate(ctx context.Context, migrations ...*Migration) (int, error) {
	if err := m.Init(ctx); err != nil {
		return 0, err
	}

	pending := append([]*Migration(nil), migrations...)
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	applied := 0
	for _, mig := range pending {
		if m.history[mig.Version] {
			continue
		}
		if err := mig.Up(ctx, m.db); err != nil {
			return applied, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		insertSQL := fmt.Sprintf("INSERT INTO %s (version, description) VALUES (?, ?)", m.db.dialect.Quote(migrationsTable))
		if _, err := m.db.Exec(ctx, insertSQL, mig.Version, mig.Description); err != nil {
			return applied, fmt.Errorf("record migration %d: %w", mig.Version, err)
		}
		m.history[mig.Version] = true
		m.db.logger.Info("applied migration %d: %s", mig.Version, mig.Description)
		applied++
	}
	return applied, nil
}

// Rollback reverts an applied migration.
func (m *Migrator) Rollback(ctx context.Context, mig *Migration) error {
	if !m.history[mig.Version] {
		return fmt.Errorf("migration %d not applied", mig.Version)
	}
	if mig.Down == nil {
		return fmt.Errorf("migration %d has no down step", mig.Version)
	}
	if err := mig.Down(ctx, m.db); err != nil {
		return fmt.Errorf("rollback migration %d (%s): %w", mig.Version, mig.Description, err)
	}
	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.db.dialect.Quote(migrationsTable))
	if _, err := m.db.Exec(ctx, deleteSQL, mig.Version); err != nil {
		return err
	}
	delete(m.history, mig.Version)
	return nil
}
