package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/readings"
)

const readingColumns = `id, nozzle_id, station_id, pump_id, fuel_type,
	entered_by, reading_date, reading_time, reading_value,
	previous_reading_id, previous_reading_value, litres_sold,
	price_per_litre, total_amount, is_initial_reading, is_sample,
	approval_status, approved_by, approved_at, rejection_reason, shift_id,
	settlement_id, transaction_id, flow_status, source, notes, warnings,
	created_at`

func scanReading(row pgx.Row) (*model.NozzleReading, error) {
	var r model.NozzleReading
	var fuel, approval, flow, source string
	var date time.Time
	err := row.Scan(&r.ID, &r.NozzleID, &r.StationID, &r.PumpID, &fuel,
		&r.EnteredBy, &date, &r.ReadingTime, &r.ReadingValue,
		&r.PreviousReadingID, &r.PreviousReadingValue, &r.LitresSold,
		&r.PricePerLitre, &r.TotalAmount, &r.IsInitialReading, &r.IsSample,
		&approval, &r.ApprovedBy, &r.ApprovedAt, &r.RejectionReason,
		&r.ShiftID, &r.SettlementID, &r.TransactionID, &flow, &source,
		&r.Notes, &r.Warnings, &r.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan reading: %w", err)
	}
	r.FuelType = model.FuelType(fuel)
	r.ReadingDate = dateOf(date)
	r.ApprovalStatus = model.ApprovalStatus(approval)
	r.FlowStatus = model.FlowStatus(flow)
	r.Source = model.ReadingSource(source)
	return &r, nil
}

func collectReadings(rows pgx.Rows) ([]*model.NozzleReading, error) {
	defer rows.Close()
	var out []*model.NozzleReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Reading(ctx context.Context, id uuid.UUID) (*model.NozzleReading, error) {
	return scanReading(s.pool.QueryRow(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings WHERE id = $1`, id))
}

func (s *Store) ReadingsByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.NozzleReading, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings WHERE id = ANY($1)
		 ORDER BY reading_date, created_at`, ids)
	if err != nil {
		return nil, fmt.Errorf("load readings by ids: %w", err)
	}
	return collectReadings(rows)
}

func (s *Store) ReadingsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.NozzleReading, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings
		 WHERE shift_id = $1 AND approval_status <> 'rejected'
		 ORDER BY created_at`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("load shift readings: %w", err)
	}
	return collectReadings(rows)
}

// LatestBefore returns the newest reading for the nozzle strictly before
// (date, createdBefore). Rejected readings never serve as a baseline.
func (s *Store) LatestBefore(ctx context.Context, nozzleID uuid.UUID, date model.Date, createdBefore time.Time) (*model.NozzleReading, error) {
	return scanReading(s.pool.QueryRow(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings
		 WHERE nozzle_id = $1
		   AND approval_status <> 'rejected'
		   AND (reading_date < $2 OR (reading_date = $2 AND created_at < $3))
		 ORDER BY reading_date DESC, created_at DESC
		 LIMIT 1`, nozzleID, dateArg(date), createdBefore))
}

func (s *Store) FindDuplicate(ctx context.Context, nozzleID uuid.UUID, date model.Date, timeOfDay string, value decimal.Decimal) (*model.NozzleReading, error) {
	return scanReading(s.pool.QueryRow(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings
		 WHERE nozzle_id = $1 AND reading_date = $2 AND reading_time = $3
		   AND reading_value = $4 AND approval_status <> 'rejected'
		 LIMIT 1`, nozzleID, dateArg(date), timeOfDay, value))
}

// ApprovedOn returns the nozzle's approved non-sample reading for the date,
// or nil.
func (s *Store) ApprovedOn(ctx context.Context, nozzleID uuid.UUID, date model.Date) (*model.NozzleReading, error) {
	return scanReading(s.pool.QueryRow(ctx,
		`SELECT `+readingColumns+` FROM nozzle_readings
		 WHERE nozzle_id = $1 AND reading_date = $2
		   AND approval_status = 'approved' AND NOT is_sample
		 LIMIT 1`, nozzleID, dateArg(date)))
}

func insertReading(ctx context.Context, tx pgx.Tx, r *model.NozzleReading) error {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO nozzle_readings (id, nozzle_id, station_id, pump_id,
			fuel_type, entered_by, reading_date, reading_time, reading_value,
			previous_reading_id, previous_reading_value, litres_sold,
			price_per_litre, total_amount, is_initial_reading, is_sample,
			approval_status, shift_id, flow_status, source, notes, warnings,
			created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23)`,
		r.ID, r.NozzleID, r.StationID, r.PumpID, string(r.FuelType),
		r.EnteredBy, dateArg(r.ReadingDate), r.ReadingTime, r.ReadingValue,
		r.PreviousReadingID, r.PreviousReadingValue, r.LitresSold,
		r.PricePerLitre, r.TotalAmount, r.IsInitialReading, r.IsSample,
		string(r.ApprovalStatus), r.ShiftID, string(r.FlowStatus),
		string(r.Source), r.Notes, warnings, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func updateTankLevel(ctx context.Context, tx pgx.Tx, t *model.Tank) error {
	if t == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE tanks SET current_level = $2, updated_at = $3 WHERE id = $1`,
		t.ID, t.CurrentLevel, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update tank level: %w", err)
	}
	return nil
}

// CreateReadingTx persists the reading, the nozzle's last-reading cache, the
// tank decrement when one applies, and the audit row in one transaction.
func (s *Store) CreateReadingTx(ctx context.Context, r *model.NozzleReading, nozzle *model.Nozzle, tnk *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertReading(ctx, tx, r); err != nil {
			return err
		}
		if nozzle != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE nozzles SET last_reading = $2, last_reading_date = $3
				WHERE id = $1`,
				nozzle.ID, nozzle.LastReading, datePtrArg(nozzle.LastReadingAt)); err != nil {
				return fmt.Errorf("update nozzle cache: %w", err)
			}
		}
		if err := updateTankLevel(ctx, tx, tnk); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// SetApprovalTx persists an approval-state change and, on rejection, the
// tank restore.
func (s *Store) SetApprovalTx(ctx context.Context, r *model.NozzleReading, tnk *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE nozzle_readings SET approval_status = $2, approved_by = $3,
				approved_at = $4, rejection_reason = $5
			WHERE id = $1`,
			r.ID, string(r.ApprovalStatus), r.ApprovedBy, r.ApprovedAt,
			r.RejectionReason)
		if err != nil {
			return fmt.Errorf("update reading approval: %w", err)
		}
		if err := updateTankLevel(ctx, tx, tnk); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// ListReadings applies the filter with offset pagination and returns the
// unlimited total alongside the page.
func (s *Store) ListReadings(ctx context.Context, f readings.Filter) ([]*model.NozzleReading, int, error) {
	where := ` WHERE station_id = $1`
	args := []any{f.StationID}
	if f.NozzleID != nil {
		args = append(args, *f.NozzleID)
		where += fmt.Sprintf(" AND nozzle_id = $%d", len(args))
	}
	if f.PumpID != nil {
		args = append(args, *f.PumpID)
		where += fmt.Sprintf(" AND pump_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, dateArg(*f.From))
		where += fmt.Sprintf(" AND reading_date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, dateArg(*f.To))
		where += fmt.Sprintf(" AND reading_date <= $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where += fmt.Sprintf(" AND approval_status = $%d", len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM nozzle_readings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count readings: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	q := `SELECT ` + readingColumns + ` FROM nozzle_readings` + where +
		fmt.Sprintf(` ORDER BY reading_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
			len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list readings: %w", err)
	}
	out, err := collectReadings(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
