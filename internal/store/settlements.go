package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const settlementColumns = `id, station_id, date, expected_cash, actual_cash,
	variance, reported_cash, reported_online, reported_credit,
	confirmed_online, confirmed_credit, online_variance, credit_variance,
	status, finalized_at, finalized_by, reading_ids, employee_shortfalls,
	created_at, updated_at`

func scanSettlement(row pgx.Row) (*model.Settlement, error) {
	var st model.Settlement
	var status string
	var date time.Time
	var shortfalls []byte
	err := row.Scan(&st.ID, &st.StationID, &date, &st.ExpectedCash,
		&st.ActualCash, &st.Variance, &st.ReportedCash, &st.ReportedOnline,
		&st.ReportedCredit, &st.ConfirmedOnline, &st.ConfirmedCredit,
		&st.OnlineVariance, &st.CreditVariance, &status, &st.FinalizedAt,
		&st.FinalizedBy, &st.ReadingIDs, &shortfalls, &st.CreatedAt,
		&st.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan settlement: %w", err)
	}
	st.Date = dateOf(date)
	st.Status = model.SettlementStatus(status)
	if len(shortfalls) > 0 {
		if err := json.Unmarshal(shortfalls, &st.Shortfalls); err != nil {
			return nil, fmt.Errorf("decode settlement shortfalls: %w", err)
		}
	}
	return &st, nil
}

func (s *Store) Settlement(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	return scanSettlement(s.pool.QueryRow(ctx,
		`SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
}

func (s *Store) ListSettlements(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Settlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+settlementColumns+` FROM settlements
		 WHERE station_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date DESC`, stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var out []*model.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateSettlementTx inserts the draft and stamps its readings as pending
// settlement in one transaction.
func (s *Store) CreateSettlementTx(ctx context.Context, st *model.Settlement, readingIDs []uuid.UUID, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		shortfalls, err := jsonArg(shortfallsOrNil(st.Shortfalls))
		if err != nil {
			return err
		}
		ids := st.ReadingIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO settlements (id, station_id, date, expected_cash,
				actual_cash, variance, reported_cash, reported_online,
				reported_credit, confirmed_online, confirmed_credit,
				online_variance, credit_variance, status, finalized_at,
				finalized_by, reading_ids, employee_shortfalls, created_at,
				updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20)`,
			st.ID, st.StationID, dateArg(st.Date), st.ExpectedCash,
			st.ActualCash, st.Variance, st.ReportedCash, st.ReportedOnline,
			st.ReportedCredit, st.ConfirmedOnline, st.ConfirmedCredit,
			st.OnlineVariance, st.CreditVariance, string(st.Status),
			st.FinalizedAt, st.FinalizedBy, ids, shortfalls, st.CreatedAt,
			st.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		if len(readingIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE nozzle_readings
				SET settlement_id = $1, flow_status = 'pending_settlement'
				WHERE id = ANY($2)`, st.ID, readingIDs); err != nil {
				return fmt.Errorf("stamp settlement readings: %w", err)
			}
		}
		return insertAudit(ctx, tx, entry)
	})
}

func updateSettlement(ctx context.Context, tx pgx.Tx, st *model.Settlement) error {
	shortfalls, err := jsonArg(shortfallsOrNil(st.Shortfalls))
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE settlements SET expected_cash = $2, actual_cash = $3,
			variance = $4, reported_cash = $5, reported_online = $6,
			reported_credit = $7, confirmed_online = $8,
			confirmed_credit = $9, online_variance = $10,
			credit_variance = $11, status = $12, finalized_at = $13,
			finalized_by = $14, employee_shortfalls = $15, updated_at = $16
		WHERE id = $1`,
		st.ID, st.ExpectedCash, st.ActualCash, st.Variance, st.ReportedCash,
		st.ReportedOnline, st.ReportedCredit, st.ConfirmedOnline,
		st.ConfirmedCredit, st.OnlineVariance, st.CreditVariance,
		string(st.Status), st.FinalizedAt, st.FinalizedBy, shortfalls,
		st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update settlement: %w", err)
	}
	return nil
}

func (s *Store) UpdateSettlementTx(ctx context.Context, st *model.Settlement, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateSettlement(ctx, tx, st); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// FinalizeSettlementTx moves the settlement out of draft, settles its
// readings, and settles the day's submitted transactions.
func (s *Store) FinalizeSettlementTx(ctx context.Context, st *model.Settlement, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := updateSettlement(ctx, tx, st); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE nozzle_readings SET flow_status = 'settled'
			WHERE settlement_id = $1`, st.ID); err != nil {
			return fmt.Errorf("settle readings: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE daily_transactions
			SET status = 'settled', settlement_id = $1, updated_at = $2
			WHERE station_id = $3 AND transaction_date = $4 AND status = 'submitted'`,
			st.ID, st.UpdatedAt, st.StationID, dateArg(st.Date)); err != nil {
			return fmt.Errorf("settle transactions: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func shortfallsOrNil(m map[string]model.EmployeeShortfall) any {
	if m == nil {
		return nil
	}
	return m
}
