package store

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// migration is one versioned schema step. Up and Down are semicolon-joined
// statement batches.
type migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "core schema",
		Up:      schemaSQL,
		Down: `
			DROP TABLE IF EXISTS audit_logs;
			DROP TABLE IF EXISTS uploads;
			DROP TABLE IF EXISTS expenses;
			DROP TABLE IF EXISTS cash_handovers;
			DROP TABLE IF EXISTS credit_settlement_links;
			DROP TABLE IF EXISTS credit_transactions;
			DROP TABLE IF EXISTS creditors;
			DROP TABLE IF EXISTS nozzle_readings;
			DROP TABLE IF EXISTS daily_transactions;
			DROP TABLE IF EXISTS settlements;
			DROP TABLE IF EXISTS shifts;
			DROP TABLE IF EXISTS tank_refills;
			DROP TABLE IF EXISTS tanks;
			DROP TABLE IF EXISTS fuel_prices;
			DROP TABLE IF EXISTS nozzles;
			DROP TABLE IF EXISTS pumps;
			ALTER TABLE users DROP CONSTRAINT IF EXISTS fk_users_station;
			DROP TABLE IF EXISTS stations;
			DROP TABLE IF EXISTS monthly_counters;
			DROP TABLE IF EXISTS plan_changes;
			DROP TABLE IF EXISTS users;
			DROP TABLE IF EXISTS plans;`,
	},
}

const migrationTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INT PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// splitSQLStatements splits a batch on semicolons, respecting string
// literals so embedded ';' characters survive.
func splitSQLStatements(script string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(script); i++ {
		ch := script[i]
		if ch == '\'' {
			// A doubled quote inside a literal is an escape, not a close.
			if inString && i+1 < len(script) && script[i+1] == '\'' {
				current.WriteByte(ch)
				current.WriteByte(script[i+1])
				i++
				continue
			}
			inString = !inString
		}
		if ch == ';' && !inString {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

// isIgnorableError reports whether a DDL error is safe to skip on re-run.
func isIgnorableError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

func (s *Store) ensureMigrationTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migrationTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version, 0 when none.
func (s *Store) CurrentVersion(ctx context.Context) (int, error) {
	if err := s.ensureMigrationTable(ctx); err != nil {
		return 0, err
	}
	var v int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// MigrateUp applies all pending migrations in order.
func (s *Store) MigrateUp(ctx context.Context) error {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		s.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		for _, stmt := range splitSQLStatements(m.Up) {
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				if isIgnorableError(err) {
					continue
				}
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)
			 ON CONFLICT (version) DO NOTHING`, m.Version, m.Name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
func (s *Store) MigrateDown(ctx context.Context) error {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current == 0 {
		return nil
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version != current {
			continue
		}
		s.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("rolling back migration")
		for _, stmt := range splitSQLStatements(m.Down) {
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("rollback %d (%s): %w", m.Version, m.Name, err)
			}
		}
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
			return fmt.Errorf("unrecord migration %d: %w", m.Version, err)
		}
		return nil
	}
	return fmt.Errorf("no migration found for version %d", current)
}

// MigrationStatus describes one migration's applied state.
type MigrationStatus struct {
	Version int
	Name    string
	Applied bool
}

// Status lists every known migration with its applied flag.
func (s *Store) Status(ctx context.Context) ([]MigrationStatus, error) {
	current, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, MigrationStatus{
			Version: m.Version,
			Name:    m.Name,
			Applied: m.Version <= current,
		})
	}
	return out, nil
}
