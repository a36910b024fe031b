package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const shiftColumns = `id, station_id, employee_id, date, start_time, end_time,
	shift_type, opening_cash, cash_collected, online_collected, credit_given,
	expected_cash, cash_difference, readings_count, total_litres_sold,
	total_sales_amount, status, ended_by, notes, created_at, updated_at`

func scanShift(row pgx.Row) (*model.Shift, error) {
	var sh model.Shift
	var status string
	var date time.Time
	err := row.Scan(&sh.ID, &sh.StationID, &sh.EmployeeID, &date,
		&sh.StartTime, &sh.EndTime, &sh.ShiftType, &sh.OpeningCash,
		&sh.CashCollected, &sh.OnlineCollected, &sh.CreditGiven, &sh.ExpectedCash,
		&sh.CashDifference, &sh.ReadingsCount, &sh.TotalLitresSold,
		&sh.TotalSalesAmount, &status, &sh.EndedBy, &sh.Notes,
		&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan shift: %w", err)
	}
	sh.Date = dateOf(date)
	sh.Status = model.ShiftStatus(status)
	return &sh, nil
}

func (s *Store) Shift(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return scanShift(s.pool.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
}

// ActiveShift returns the employee's one active shift, or nil.
func (s *Store) ActiveShift(ctx context.Context, employeeID uuid.UUID) (*model.Shift, error) {
	return scanShift(s.pool.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts
		 WHERE employee_id = $1 AND status = 'active'
		 LIMIT 1`, employeeID))
}

func (s *Store) ListShifts(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Shift, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shiftColumns+` FROM shifts
		 WHERE station_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date DESC, created_at DESC`,
		stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return collectShifts(rows)
}

// EndedShiftsOn returns the station's ended shifts for one date, used by
// settlement shortfall aggregation.
func (s *Store) EndedShiftsOn(ctx context.Context, stationID uuid.UUID, date model.Date) ([]*model.Shift, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+shiftColumns+` FROM shifts
		 WHERE station_id = $1 AND date = $2 AND status = 'ended'
		 ORDER BY created_at`, stationID, dateArg(date))
	if err != nil {
		return nil, fmt.Errorf("list ended shifts: %w", err)
	}
	return collectShifts(rows)
}

func collectShifts(rows pgx.Rows) ([]*model.Shift, error) {
	defer rows.Close()
	var out []*model.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *Store) CreateShiftTx(ctx context.Context, sh *model.Shift, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO shifts (id, station_id, employee_id, date, start_time,
				end_time, shift_type, opening_cash, cash_collected,
				online_collected, credit_given, expected_cash, cash_difference,
				readings_count, total_litres_sold, total_sales_amount,
				status, ended_by, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20,$21)`,
			sh.ID, sh.StationID, sh.EmployeeID, dateArg(sh.Date),
			sh.StartTime, sh.EndTime, sh.ShiftType, sh.OpeningCash,
			sh.CashCollected, sh.OnlineCollected, sh.CreditGiven, sh.ExpectedCash,
			sh.CashDifference, sh.ReadingsCount, sh.TotalLitresSold,
			sh.TotalSalesAmount, string(sh.Status), sh.EndedBy, sh.Notes,
			sh.CreatedAt, sh.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func updateShift(ctx context.Context, tx pgx.Tx, sh *model.Shift) error {
	_, err := tx.Exec(ctx, `
		UPDATE shifts SET end_time = $2, cash_collected = $3,
			online_collected = $4, credit_given = $5, expected_cash = $6,
			cash_difference = $7, readings_count = $8, total_litres_sold = $9,
			total_sales_amount = $10, status = $11, ended_by = $12,
			notes = $13, updated_at = $14
		WHERE id = $1`,
		sh.ID, sh.EndTime, sh.CashCollected, sh.OnlineCollected,
		sh.CreditGiven, sh.ExpectedCash, sh.CashDifference, sh.ReadingsCount,
		sh.TotalLitresSold, sh.TotalSalesAmount, string(sh.Status),
		sh.EndedBy, sh.Notes, sh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return nil
}

func (s *Store) UpdateShiftTx(ctx context.Context, sh *model.Shift, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateShift(ctx, tx, sh); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// EndShiftTx writes the ended shift's totals and stamps the aggregated
// readings with the shift id in the same transaction.
func (s *Store) EndShiftTx(ctx context.Context, sh *model.Shift, readingIDs []uuid.UUID, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateShift(ctx, tx, sh); err != nil {
			return err
		}
		if len(readingIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE nozzle_readings SET shift_id = $1 WHERE id = ANY($2)`,
				sh.ID, readingIDs); err != nil {
				return fmt.Errorf("stamp shift readings: %w", err)
			}
		}
		return insertAudit(ctx, tx, entry)
	})
}
