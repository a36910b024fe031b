package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
)

const planColumns = `id, name, max_stations, max_pumps_per_station,
	max_nozzles_per_pump, max_employees, max_creditors, monthly_exports,
	monthly_reports, monthly_manual_entries, sales_retention_days,
	profit_retention_days, analytics_retention_days, audit_retention_days,
	transaction_retention_days, backdated_days, can_export,
	can_track_expenses, can_track_credits, can_view_profit_loss, created_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	err := row.Scan(&p.ID, &p.Name, &p.MaxStations, &p.MaxPumpsPerStation,
		&p.MaxNozzlesPerPump, &p.MaxEmployees, &p.MaxCreditors,
		&p.MonthlyExports, &p.MonthlyReports, &p.MonthlyManualEntries,
		&p.SalesRetentionDays, &p.ProfitRetentionDays, &p.AnalyticsRetentionDays,
		&p.AuditRetentionDays, &p.TransactionRetentionDays, &p.BackdatedDays,
		&p.CanExport, &p.CanTrackExpenses, &p.CanTrackCredits,
		&p.CanViewProfitLoss, &p.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	return &p, nil
}

func (s *Store) Plan(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	return scanPlan(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
}

func (s *Store) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+planColumns+` FROM plans ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePlanTx(ctx context.Context, p *model.Plan, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO plans (id, name, max_stations, max_pumps_per_station,
				max_nozzles_per_pump, max_employees, max_creditors,
				monthly_exports, monthly_reports, monthly_manual_entries,
				sales_retention_days, profit_retention_days,
				analytics_retention_days, audit_retention_days,
				transaction_retention_days, backdated_days, can_export,
				can_track_expenses, can_track_credits, can_view_profit_loss,
				created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20,$21)`,
			p.ID, p.Name, p.MaxStations, p.MaxPumpsPerStation,
			p.MaxNozzlesPerPump, p.MaxEmployees, p.MaxCreditors,
			p.MonthlyExports, p.MonthlyReports, p.MonthlyManualEntries,
			p.SalesRetentionDays, p.ProfitRetentionDays,
			p.AnalyticsRetentionDays, p.AuditRetentionDays,
			p.TransactionRetentionDays, p.BackdatedDays, p.CanExport,
			p.CanTrackExpenses, p.CanTrackCredits, p.CanViewProfitLoss,
			p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// PlanForOwner returns the owner's current plan, and the previous plan with
// its change instant when the history records one.
func (s *Store) PlanForOwner(ctx context.Context, ownerID uuid.UUID) (*model.Plan, *model.Plan, *time.Time, error) {
	var planID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT plan_id FROM users WHERE id = $1 AND role = 'owner'`, ownerID).Scan(&planID)
	if err != nil {
		if noRows(err) {
			return nil, nil, nil, fmt.Errorf("owner %s has no plan", ownerID)
		}
		return nil, nil, nil, fmt.Errorf("read owner plan: %w", err)
	}
	current, err := s.Plan(ctx, planID)
	if err != nil {
		return nil, nil, nil, err
	}
	if current == nil {
		return nil, nil, nil, fmt.Errorf("plan %s not found", planID)
	}

	var prevID *uuid.UUID
	var changedAt time.Time
	err = s.pool.QueryRow(ctx, `
		SELECT previous_plan_id, changed_at FROM plan_changes
		WHERE owner_id = $1
		ORDER BY changed_at DESC
		LIMIT 1`, ownerID).Scan(&prevID, &changedAt)
	if err != nil {
		if noRows(err) {
			return current, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("read plan history: %w", err)
	}
	if prevID == nil {
		return current, nil, &changedAt, nil
	}
	previous, err := s.Plan(ctx, *prevID)
	if err != nil {
		return nil, nil, nil, err
	}
	return current, previous, &changedAt, nil
}

func (s *Store) OwnerOfStation(ctx context.Context, stationID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id FROM stations WHERE id = $1`, stationID).Scan(&ownerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve station owner: %w", err)
	}
	return ownerID, nil
}

func (s *Store) CountStations(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM stations WHERE owner_id = $1 AND is_active`, ownerID)
}

func (s *Store) CountPumps(ctx context.Context, stationID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM pumps WHERE station_id = $1 AND status <> 'inactive'`, stationID)
}

func (s *Store) CountNozzles(ctx context.Context, pumpID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM nozzles WHERE pump_id = $1 AND status <> 'inactive'`, pumpID)
}

func (s *Store) CountEmployees(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return s.countRows(ctx, `
		SELECT count(*) FROM users u
		JOIN stations st ON st.id = u.station_id
		WHERE st.owner_id = $1 AND u.role IN ('manager','employee') AND u.is_active`,
		ownerID)
}

func (s *Store) CountCreditors(ctx context.Context, stationID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM creditors WHERE station_id = $1 AND is_active`, stationID)
}

func (s *Store) countRows(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (s *Store) MonthlyCount(ctx context.Context, ownerID uuid.UUID, month string, kind quota.Kind) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count FROM monthly_counters
		WHERE owner_id = $1 AND month = $2 AND kind = $3`,
		ownerID, month, string(kind)).Scan(&n)
	if err != nil {
		if noRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read monthly counter: %w", err)
	}
	return n, nil
}

func (s *Store) IncrementMonthly(ctx context.Context, ownerID uuid.UUID, month string, kind quota.Kind) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monthly_counters (owner_id, month, kind, count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (owner_id, month, kind) DO UPDATE SET count = monthly_counters.count + 1`,
		ownerID, month, string(kind))
	if err != nil {
		return fmt.Errorf("increment monthly counter: %w", err)
	}
	return nil
}
