package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const tankColumns = `id, station_id, name, fuel_name, fuel_type, capacity,
	current_level, tracking_mode, low_level_warning, low_level_percent,
	critical_level, critical_level_percent, allow_negative,
	level_after_last_refill, last_refill_date, last_refill_amount,
	last_dip_reading, last_dip_date, created_at, updated_at`

func scanTank(row pgx.Row) (*model.Tank, error) {
	var t model.Tank
	var fuel, mode string
	var lastRefill, lastDip *time.Time
	err := row.Scan(&t.ID, &t.StationID, &t.Name, &t.FuelName, &fuel,
		&t.Capacity, &t.CurrentLevel, &mode, &t.LowLevelLitres,
		&t.LowLevelPercent, &t.CriticalLevelLitres, &t.CriticalLevelPercent,
		&t.AllowNegative, &t.LevelAfterLastRefill, &lastRefill,
		&t.LastRefillAmount, &t.LastDipReading, &lastDip, &t.CreatedAt,
		&t.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tank: %w", err)
	}
	t.FuelType = model.FuelType(fuel)
	t.TrackingMode = model.TankTrackingMode(mode)
	t.LastRefillDate = datePtr(lastRefill)
	t.LastDipDate = datePtr(lastDip)
	return &t, nil
}

func (s *Store) Tank(ctx context.Context, id uuid.UUID) (*model.Tank, error) {
	return scanTank(s.pool.QueryRow(ctx,
		`SELECT `+tankColumns+` FROM tanks WHERE id = $1`, id))
}

func (s *Store) TankForFuel(ctx context.Context, stationID uuid.UUID, fuel model.FuelType) (*model.Tank, error) {
	return scanTank(s.pool.QueryRow(ctx,
		`SELECT `+tankColumns+` FROM tanks
		 WHERE station_id = $1 AND fuel_type = $2`, stationID, string(fuel)))
}

func (s *Store) ListTanks(ctx context.Context, stationID uuid.UUID) ([]*model.Tank, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tankColumns+` FROM tanks WHERE station_id = $1 ORDER BY fuel_type`,
		stationID)
	if err != nil {
		return nil, fmt.Errorf("list tanks: %w", err)
	}
	defer rows.Close()

	var out []*model.Tank
	for rows.Next() {
		t, err := scanTank(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTankTx persists a new tank with its audit row.
func (s *Store) CreateTankTx(ctx context.Context, t *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tanks (id, station_id, name, fuel_name, fuel_type,
				capacity, current_level, tracking_mode, low_level_warning,
				low_level_percent, critical_level, critical_level_percent,
				allow_negative, level_after_last_refill, last_refill_date,
				last_refill_amount, last_dip_reading, last_dip_date,
				created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20)`,
			t.ID, t.StationID, t.Name, t.FuelName, string(t.FuelType),
			t.Capacity, t.CurrentLevel, string(t.TrackingMode),
			t.LowLevelLitres, t.LowLevelPercent, t.CriticalLevelLitres,
			t.CriticalLevelPercent, t.AllowNegative, t.LevelAfterLastRefill,
			datePtrArg(t.LastRefillDate), t.LastRefillAmount,
			t.LastDipReading, datePtrArg(t.LastDipDate), t.CreatedAt,
			t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert tank: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func updateTank(ctx context.Context, tx pgx.Tx, t *model.Tank) error {
	_, err := tx.Exec(ctx, `
		UPDATE tanks SET name = $2, fuel_name = $3, capacity = $4,
			current_level = $5, tracking_mode = $6, low_level_warning = $7,
			low_level_percent = $8, critical_level = $9,
			critical_level_percent = $10, allow_negative = $11,
			level_after_last_refill = $12, last_refill_date = $13,
			last_refill_amount = $14, last_dip_reading = $15,
			last_dip_date = $16, updated_at = $17
		WHERE id = $1`,
		t.ID, t.Name, t.FuelName, t.Capacity, t.CurrentLevel,
		string(t.TrackingMode), t.LowLevelLitres, t.LowLevelPercent,
		t.CriticalLevelLitres, t.CriticalLevelPercent, t.AllowNegative,
		t.LevelAfterLastRefill, datePtrArg(t.LastRefillDate),
		t.LastRefillAmount, t.LastDipReading, datePtrArg(t.LastDipDate),
		t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update tank: %w", err)
	}
	return nil
}

func (s *Store) UpdateTankTx(ctx context.Context, t *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateTank(ctx, tx, t); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

const refillColumns = `id, tank_id, station_id, litres, refill_date,
	refill_time, cost_per_litre, total_cost, supplier, invoice_number,
	vehicle_number, driver_name, tank_level_before, tank_level_after,
	entry_type, backdated, verified, verified_by, verified_at, entered_by,
	created_at`

func scanRefill(row pgx.Row) (*model.TankRefill, error) {
	var r model.TankRefill
	var entryType string
	var date time.Time
	err := row.Scan(&r.ID, &r.TankID, &r.StationID, &r.Litres, &date,
		&r.RefillTime, &r.CostPerLitre, &r.TotalCost, &r.Supplier,
		&r.InvoiceNumber, &r.VehicleNumber, &r.DriverName,
		&r.TankLevelBefore, &r.TankLevelAfter, &entryType, &r.Backdated,
		&r.Verified, &r.VerifiedBy, &r.VerifiedAt, &r.EnteredBy, &r.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan refill: %w", err)
	}
	r.RefillDate = dateOf(date)
	r.EntryType = model.RefillEntryType(entryType)
	return &r, nil
}

func (s *Store) Refill(ctx context.Context, id uuid.UUID) (*model.TankRefill, error) {
	return scanRefill(s.pool.QueryRow(ctx,
		`SELECT `+refillColumns+` FROM tank_refills WHERE id = $1`, id))
}

func (s *Store) ListRefills(ctx context.Context, tankID uuid.UUID, limit int) ([]*model.TankRefill, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+refillColumns+` FROM tank_refills
		 WHERE tank_id = $1
		 ORDER BY refill_date DESC, created_at DESC
		 LIMIT $2`, tankID, limit)
	if err != nil {
		return nil, fmt.Errorf("list refills: %w", err)
	}
	defer rows.Close()

	var out []*model.TankRefill
	for rows.Next() {
		r, err := scanRefill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordRefillTx persists the refill row and the tank's new level together.
func (s *Store) RecordRefillTx(ctx context.Context, refill *model.TankRefill, tank *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tank_refills (id, tank_id, station_id, litres,
				refill_date, refill_time, cost_per_litre, total_cost,
				supplier, invoice_number, vehicle_number, driver_name,
				tank_level_before, tank_level_after, entry_type, backdated,
				verified, verified_by, verified_at, entered_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20,$21)`,
			refill.ID, refill.TankID, refill.StationID, refill.Litres,
			dateArg(refill.RefillDate), refill.RefillTime,
			refill.CostPerLitre, refill.TotalCost, refill.Supplier,
			refill.InvoiceNumber, refill.VehicleNumber, refill.DriverName,
			refill.TankLevelBefore, refill.TankLevelAfter,
			string(refill.EntryType), refill.Backdated, refill.Verified,
			refill.VerifiedBy, refill.VerifiedAt, refill.EnteredBy,
			refill.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert refill: %w", err)
		}
		if err := updateTank(ctx, tx, tank); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// DeleteRefillTx removes a refill and writes back the reverted tank state.
func (s *Store) DeleteRefillTx(ctx context.Context, refillID uuid.UUID, tank *model.Tank, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tank_refills WHERE id = $1`, refillID)
		if err != nil {
			return fmt.Errorf("delete refill: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("refill %s not found", refillID)
		}
		if err := updateTank(ctx, tx, tank); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}
