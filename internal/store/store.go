// Package store is the PostgreSQL persistence layer. It implements the
// narrow Store interfaces each engine declares; every "...Tx" method runs
// its full row set, audit entry included, in one database transaction.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, cfg config.PostgresConfig, logger zerolog.Logger) (*Store, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Int32("max_conns", pc.MaxConns).
		Msg("connected to postgres")
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// noRows converts pgx.ErrNoRows into the (nil, nil) convention the engines
// expect from single-row lookups.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// dateOf converts a scanned DATE column.
func dateOf(t time.Time) model.Date { return model.DateOf(t) }

// datePtr converts a nullable DATE column.
func datePtr(t *time.Time) *model.Date {
	if t == nil {
		return nil
	}
	d := model.DateOf(*t)
	return &d
}

// dateArg encodes a model.Date for a DATE parameter.
func dateArg(d model.Date) time.Time { return d.Time() }

// datePtrArg encodes a nullable model.Date.
func datePtrArg(d *model.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

// jsonArg marshals a value for a JSONB parameter, passing NULL for nil.
func jsonArg(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return b, nil
}

const auditInsert = `
INSERT INTO audit_logs (
	id, user_id, user_email, user_role, station_id, action, entity_type,
	entity_id, old_values, new_values, description, ip, user_agent,
	severity, category, success, error_message, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

// insertAudit writes one audit row inside the caller's transaction.
func insertAudit(ctx context.Context, tx pgx.Tx, e *model.AuditLog) error {
	if e == nil {
		return nil
	}
	oldJSON, err := jsonArg(mapOrNil(e.OldValues))
	if err != nil {
		return err
	}
	newJSON, err := jsonArg(mapOrNil(e.NewValues))
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, auditInsert,
		e.ID, e.UserID, e.UserEmail, string(e.UserRole), e.StationID,
		e.Action, e.EntityType, e.EntityID, oldJSON, newJSON,
		e.Description, e.IP, e.UserAgent, string(e.Severity),
		string(e.Category), e.Success, e.ErrorMessage, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}

func mapOrNil(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// WriteAudit persists a standalone audit row outside any domain write, used
// for auth attempts and other actions with no accompanying mutation.
func (s *Store) WriteAudit(ctx context.Context, e *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		return insertAudit(ctx, tx, e)
	})
}
