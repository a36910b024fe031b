package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const stationColumns = `id, name, code, owner_id, brand, address, phone,
	shift_required_for_reading, missed_reading_alert_days, is_active,
	created_at, updated_at`

func scanStation(row pgx.Row) (*model.Station, error) {
	var st model.Station
	err := row.Scan(&st.ID, &st.Name, &st.Code, &st.OwnerID, &st.Brand,
		&st.Address, &st.Phone, &st.ShiftRequiredForReading,
		&st.MissedReadingAlertDays, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan station: %w", err)
	}
	return &st, nil
}

func (s *Store) Station(ctx context.Context, id uuid.UUID) (*model.Station, error) {
	return scanStation(s.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE id = $1`, id))
}

func (s *Store) StationByCode(ctx context.Context, code string) (*model.Station, error) {
	return scanStation(s.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE code = $1`, code))
}

func (s *Store) ListStations(ctx context.Context, ownerID *uuid.UUID) ([]*model.Station, error) {
	q := `SELECT ` + stationColumns + ` FROM stations`
	args := []any{}
	if ownerID != nil {
		q += ` WHERE owner_id = $1`
		args = append(args, *ownerID)
	}
	q += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	var out []*model.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) CreateStationTx(ctx context.Context, st *model.Station, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO stations (id, name, code, owner_id, brand, address,
				phone, shift_required_for_reading, missed_reading_alert_days,
				is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			st.ID, st.Name, st.Code, st.OwnerID, st.Brand, st.Address,
			st.Phone, st.ShiftRequiredForReading, st.MissedReadingAlertDays,
			st.IsActive, st.CreatedAt, st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert station: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateStationTx(ctx context.Context, st *model.Station, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE stations SET name = $2, brand = $3, address = $4, phone = $5,
				shift_required_for_reading = $6, missed_reading_alert_days = $7,
				is_active = $8, updated_at = $9
			WHERE id = $1`,
			st.ID, st.Name, st.Brand, st.Address, st.Phone,
			st.ShiftRequiredForReading, st.MissedReadingAlertDays,
			st.IsActive, st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update station: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

const pumpColumns = `id, station_id, name, pump_number, serial, status, created_at`

func scanPump(row pgx.Row) (*model.Pump, error) {
	var p model.Pump
	var status string
	err := row.Scan(&p.ID, &p.StationID, &p.Name, &p.PumpNumber, &p.Serial,
		&status, &p.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pump: %w", err)
	}
	p.Status = model.PumpStatus(status)
	return &p, nil
}

func (s *Store) Pump(ctx context.Context, id uuid.UUID) (*model.Pump, error) {
	return scanPump(s.pool.QueryRow(ctx,
		`SELECT `+pumpColumns+` FROM pumps WHERE id = $1`, id))
}

// PumpBySerial matches the OCR-extracted serial, case-insensitively.
func (s *Store) PumpBySerial(ctx context.Context, stationID uuid.UUID, serial string) (*model.Pump, error) {
	return scanPump(s.pool.QueryRow(ctx,
		`SELECT `+pumpColumns+` FROM pumps
		 WHERE station_id = $1 AND upper(serial) = upper($2)`, stationID, serial))
}

// NextPumpNumber returns the next free pump number at the station.
func (s *Store) NextPumpNumber(ctx context.Context, stationID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(pump_number), 0) + 1 FROM pumps WHERE station_id = $1`,
		stationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("next pump number: %w", err)
	}
	return n, nil
}

func (s *Store) ListPumps(ctx context.Context, stationID uuid.UUID) ([]*model.Pump, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pumpColumns+` FROM pumps WHERE station_id = $1 ORDER BY pump_number`,
		stationID)
	if err != nil {
		return nil, fmt.Errorf("list pumps: %w", err)
	}
	defer rows.Close()

	var out []*model.Pump
	for rows.Next() {
		p, err := scanPump(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func insertPump(ctx context.Context, tx pgx.Tx, p *model.Pump) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO pumps (id, station_id, name, pump_number, serial, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.StationID, p.Name, p.PumpNumber, p.Serial, string(p.Status), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pump: %w", err)
	}
	return nil
}

func (s *Store) CreatePumpTx(ctx context.Context, p *model.Pump, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertPump(ctx, tx, p); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdatePumpTx(ctx context.Context, p *model.Pump, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE pumps SET name = $2, serial = $3, status = $4 WHERE id = $1`,
			p.ID, p.Name, p.Serial, string(p.Status))
		if err != nil {
			return fmt.Errorf("update pump: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

const nozzleColumns = `id, pump_id, station_id, nozzle_number, fuel_type,
	status, initial_reading, last_reading, last_reading_date, created_at`

func scanNozzle(row pgx.Row) (*model.Nozzle, error) {
	var n model.Nozzle
	var fuel, status string
	var lastDate *time.Time
	err := row.Scan(&n.ID, &n.PumpID, &n.StationID, &n.NozzleNumber, &fuel,
		&status, &n.InitialReading, &n.LastReading, &lastDate, &n.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan nozzle: %w", err)
	}
	n.FuelType = model.FuelType(fuel)
	n.Status = model.PumpStatus(status)
	n.LastReadingAt = datePtr(lastDate)
	return &n, nil
}

func (s *Store) Nozzle(ctx context.Context, id uuid.UUID) (*model.Nozzle, error) {
	return scanNozzle(s.pool.QueryRow(ctx,
		`SELECT `+nozzleColumns+` FROM nozzles WHERE id = $1`, id))
}

func (s *Store) NozzleByNumber(ctx context.Context, pumpID uuid.UUID, nozzleNumber int) (*model.Nozzle, error) {
	return scanNozzle(s.pool.QueryRow(ctx,
		`SELECT `+nozzleColumns+` FROM nozzles
		 WHERE pump_id = $1 AND nozzle_number = $2`, pumpID, nozzleNumber))
}

func (s *Store) ListNozzles(ctx context.Context, pumpID uuid.UUID) ([]*model.Nozzle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+nozzleColumns+` FROM nozzles WHERE pump_id = $1 ORDER BY nozzle_number`,
		pumpID)
	if err != nil {
		return nil, fmt.Errorf("list nozzles: %w", err)
	}
	defer rows.Close()

	var out []*model.Nozzle
	for rows.Next() {
		n, err := scanNozzle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func insertNozzle(ctx context.Context, tx pgx.Tx, n *model.Nozzle) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO nozzles (id, pump_id, station_id, nozzle_number, fuel_type,
			status, initial_reading, last_reading, last_reading_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.PumpID, n.StationID, n.NozzleNumber, string(n.FuelType),
		string(n.Status), n.InitialReading, n.LastReading,
		datePtrArg(n.LastReadingAt), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert nozzle: %w", err)
	}
	return nil
}

func (s *Store) CreateNozzleTx(ctx context.Context, n *model.Nozzle, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertNozzle(ctx, tx, n); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

const priceColumns = `id, station_id, fuel_type, selling_price, cost_price,
	effective_from, created_at`

func scanPrice(row pgx.Row) (*model.FuelPrice, error) {
	var p model.FuelPrice
	var fuel string
	var from time.Time
	err := row.Scan(&p.ID, &p.StationID, &fuel, &p.SellingPrice, &p.CostPrice,
		&from, &p.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fuel price: %w", err)
	}
	p.FuelType = model.FuelType(fuel)
	p.EffectiveFrom = dateOf(from)
	return &p, nil
}

// PriceOn returns the price with the latest effective_from on or before the
// date, or nil.
func (s *Store) PriceOn(ctx context.Context, stationID uuid.UUID, fuel model.FuelType, date model.Date) (*model.FuelPrice, error) {
	return scanPrice(s.pool.QueryRow(ctx,
		`SELECT `+priceColumns+` FROM fuel_prices
		 WHERE station_id = $1 AND fuel_type = $2 AND effective_from <= $3
		 ORDER BY effective_from DESC
		 LIMIT 1`, stationID, string(fuel), dateArg(date)))
}

func (s *Store) ListPrices(ctx context.Context, stationID uuid.UUID) ([]*model.FuelPrice, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM fuel_prices
		 WHERE station_id = $1
		 ORDER BY fuel_type, effective_from DESC`, stationID)
	if err != nil {
		return nil, fmt.Errorf("list fuel prices: %w", err)
	}
	defer rows.Close()

	var out []*model.FuelPrice
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePriceTx appends a price row; prices are never overwritten.
func (s *Store) CreatePriceTx(ctx context.Context, p *model.FuelPrice, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO fuel_prices (id, station_id, fuel_type, selling_price,
				cost_price, effective_from, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			p.ID, p.StationID, string(p.FuelType), p.SellingPrice, p.CostPrice,
			dateArg(p.EffectiveFrom), p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert fuel price: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}
