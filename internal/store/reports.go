package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/reports"
)

// Sales aggregates exclude rejected and sample readings; samples move the
// meter without revenue.
const salesFilter = `
	station_id = $1
	AND reading_date BETWEEN $2 AND $3
	AND approval_status <> 'rejected'
	AND NOT is_sample`

func (s *Store) SalesByDay(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]reports.DayTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT reading_date, COALESCE(SUM(litres_sold), 0), COALESCE(SUM(total_amount), 0)
		FROM nozzle_readings
		WHERE `+salesFilter+`
		GROUP BY reading_date
		ORDER BY reading_date`,
		stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("sales by day: %w", err)
	}
	defer rows.Close()

	var out []reports.DayTotal
	for rows.Next() {
		var d reports.DayTotal
		var date time.Time
		if err := rows.Scan(&date, &d.Litres, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan day total: %w", err)
		}
		d.Date = dateOf(date)
		out = append(out, d)
	}
	return out, rows.Err()
}

// SalesByFuel prices cost with the cost_price effective on each reading's
// date, so profit holds up across price changes.
func (s *Store) SalesByFuel(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]reports.FuelTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.fuel_type,
		       COALESCE(SUM(r.litres_sold), 0),
		       COALESCE(SUM(r.total_amount), 0),
		       COALESCE(SUM(r.litres_sold * COALESCE(p.cost_price, 0)), 0)
		FROM nozzle_readings r
		LEFT JOIN LATERAL (
			SELECT cost_price FROM fuel_prices
			WHERE station_id = r.station_id
			  AND fuel_type = r.fuel_type
			  AND effective_from <= r.reading_date
			ORDER BY effective_from DESC
			LIMIT 1
		) p ON TRUE
		WHERE r.station_id = $1
		  AND r.reading_date BETWEEN $2 AND $3
		  AND r.approval_status <> 'rejected'
		  AND NOT r.is_sample
		GROUP BY r.fuel_type
		ORDER BY r.fuel_type`,
		stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("sales by fuel: %w", err)
	}
	defer rows.Close()

	var out []reports.FuelTotal
	for rows.Next() {
		var f reports.FuelTotal
		var fuel string
		if err := rows.Scan(&fuel, &f.Litres, &f.Amount, &f.Cost); err != nil {
			return nil, fmt.Errorf("scan fuel total: %w", err)
		}
		f.FuelType = model.FuelType(fuel)
		out = append(out, f)
	}
	return out, rows.Err()
}

// SalesByPump ranks pumps by sales amount over the window.
func (s *Store) SalesByPump(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]reports.PumpTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.pump_id, p.name, count(*),
		       COALESCE(SUM(r.litres_sold), 0),
		       COALESCE(SUM(r.total_amount), 0)
		FROM nozzle_readings r
		JOIN pumps p ON p.id = r.pump_id
		WHERE r.station_id = $1
		  AND r.reading_date BETWEEN $2 AND $3
		  AND r.approval_status <> 'rejected'
		  AND NOT r.is_sample
		GROUP BY r.pump_id, p.name
		ORDER BY SUM(r.total_amount) DESC`,
		stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("sales by pump: %w", err)
	}
	defer rows.Close()

	var out []reports.PumpTotal
	for rows.Next() {
		var t reports.PumpTotal
		if err := rows.Scan(&t.PumpID, &t.PumpName, &t.Readings, &t.Litres, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan pump total: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) PendingApprovalCount(ctx context.Context, stationID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM nozzle_readings
		 WHERE station_id = $1 AND approval_status = 'pending'`, stationID)
}
