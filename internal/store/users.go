package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/admin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const userColumns = `id, email, password_hash, name, role, station_id, plan_id,
	created_by, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role,
		&u.StationID, &u.PlanID, &u.CreatedBy, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (s *Store) User(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

// UserName returns the display name, or the id string when the user row is
// gone.
func (s *Store) UserName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, id).Scan(&name)
	if err != nil {
		if noRows(err) {
			return id.String(), nil
		}
		return "", fmt.Errorf("lookup user name: %w", err)
	}
	return name, nil
}

// StationManager returns the station's active manager, or nil when none is
// assigned.
func (s *Store) StationManager(ctx context.Context, stationID uuid.UUID) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE station_id = $1 AND role = 'manager' AND is_active
		 ORDER BY created_at
		 LIMIT 1`, stationID))
}

func (s *Store) ListUsers(ctx context.Context, f admin.UserFilter) ([]*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE TRUE`
	args := []any{}
	if f.Role != nil {
		args = append(args, string(*f.Role))
		q += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if f.StationID != nil {
		args = append(args, *f.StationID)
		q += fmt.Sprintf(" AND station_id = $%d", len(args))
	}
	if f.CreatedBy != nil {
		args = append(args, *f.CreatedBy)
		q += fmt.Sprintf(" AND created_by = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func insertUser(ctx context.Context, tx pgx.Tx, u *model.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, station_id,
			plan_id, created_by, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role), u.StationID,
		u.PlanID, u.CreatedBy, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) CreateUserTx(ctx context.Context, u *model.User, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		if u.Role == model.RoleOwner && u.PlanID != nil {
			// Owners start their plan history at creation.
			if _, err := tx.Exec(ctx, `
				INSERT INTO plan_changes (owner_id, plan_id, changed_at)
				VALUES ($1, $2, $3)`, u.ID, *u.PlanID, u.CreatedAt); err != nil {
				return fmt.Errorf("insert plan change: %w", err)
			}
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateUserTx(ctx context.Context, u *model.User, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE users SET email = $2, password_hash = $3, name = $4,
				role = $5, station_id = $6, plan_id = $7, is_active = $8,
				updated_at = $9
			WHERE id = $1`,
			u.ID, u.Email, u.PasswordHash, u.Name, string(u.Role),
			u.StationID, u.PlanID, u.IsActive, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// AssignPlanTx records the owner's plan change with its changed-at instant;
// the quota engine reads the previous plan during the downgrade grace
// window.
func (s *Store) AssignPlanTx(ctx context.Context, ownerID, planID uuid.UUID, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var previous *uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT plan_id FROM users WHERE id = $1`, ownerID).Scan(&previous)
		if err != nil {
			return fmt.Errorf("read current plan: %w", err)
		}
		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE users SET plan_id = $2, updated_at = $3 WHERE id = $1`,
			ownerID, planID, now); err != nil {
			return fmt.Errorf("assign plan: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO plan_changes (owner_id, plan_id, previous_plan_id, changed_at)
			VALUES ($1, $2, $3, $4)`, ownerID, planID, previous, now); err != nil {
			return fmt.Errorf("insert plan change: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// StationIDsOwnedBy resolves the owner's station scope.
func (s *Store) StationIDsOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM stations WHERE owner_id = $1 AND is_active`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned stations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
