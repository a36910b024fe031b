package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/handover"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const handoverColumns = `id, station_id, type, date, from_user_id, to_user_id,
	expected_amount, actual_amount, difference, previous_handover_id,
	shift_id, status, confirmed_by, confirmed_at, dispute_notes,
	resolution_notes, resolved_by, resolved_at, bank_name,
	deposit_reference, receipt_url, notes, created_at, updated_at`

func scanHandover(row pgx.Row) (*model.CashHandover, error) {
	var h model.CashHandover
	var typ, status string
	var date time.Time
	err := row.Scan(&h.ID, &h.StationID, &typ, &date, &h.FromUserID,
		&h.ToUserID, &h.ExpectedAmount, &h.ActualAmount, &h.Difference,
		&h.PreviousHandoverID, &h.ShiftID, &status, &h.ConfirmedBy,
		&h.ConfirmedAt, &h.DisputeNotes, &h.ResolutionNotes, &h.ResolvedBy,
		&h.ResolvedAt, &h.BankName, &h.DepositReference, &h.ReceiptURL,
		&h.Notes, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan handover: %w", err)
	}
	h.Type = model.HandoverType(typ)
	h.Date = dateOf(date)
	h.Status = model.HandoverStatus(status)
	return &h, nil
}

func collectHandovers(rows pgx.Rows) ([]*model.CashHandover, error) {
	defer rows.Close()
	var out []*model.CashHandover
	for rows.Next() {
		h, err := scanHandover(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) Handover(ctx context.Context, id uuid.UUID) (*model.CashHandover, error) {
	return scanHandover(s.pool.QueryRow(ctx,
		`SELECT `+handoverColumns+` FROM cash_handovers WHERE id = $1`, id))
}

// LatestConfirmed returns the newest confirmed-or-resolved handover of the
// type at the station, optionally restricted to one originating user.
func (s *Store) LatestConfirmed(ctx context.Context, stationID uuid.UUID, typ model.HandoverType, fromUserID *uuid.UUID) (*model.CashHandover, error) {
	q := `SELECT ` + handoverColumns + ` FROM cash_handovers
		 WHERE station_id = $1 AND type = $2 AND status IN ('confirmed','resolved')`
	args := []any{stationID, string(typ)}
	if fromUserID != nil {
		args = append(args, *fromUserID)
		q += fmt.Sprintf(" AND from_user_id = $%d", len(args))
	}
	q += ` ORDER BY created_at DESC LIMIT 1`
	return scanHandover(s.pool.QueryRow(ctx, q, args...))
}

func (s *Store) ListHandovers(ctx context.Context, f handover.ListFilter) ([]*model.CashHandover, error) {
	q := `SELECT ` + handoverColumns + ` FROM cash_handovers WHERE station_id = $1`
	args := []any{f.StationID}
	if f.Type != nil {
		args = append(args, string(*f.Type))
		q += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.ToUserID != nil {
		args = append(args, *f.ToUserID)
		q += fmt.Sprintf(" AND to_user_id = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, dateArg(*f.From))
		q += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, dateArg(*f.To))
		q += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	q += ` ORDER BY date DESC, created_at DESC`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list handovers: %w", err)
	}
	return collectHandovers(rows)
}

// PendingHandoverCount feeds the dashboard.
func (s *Store) PendingHandoverCount(ctx context.Context, stationID uuid.UUID) (int, error) {
	return s.countRows(ctx,
		`SELECT count(*) FROM cash_handovers WHERE station_id = $1 AND status = 'pending'`,
		stationID)
}

func (s *Store) CreateHandoverTx(ctx context.Context, h *model.CashHandover, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO cash_handovers (id, station_id, type, date,
				from_user_id, to_user_id, expected_amount, actual_amount,
				difference, previous_handover_id, shift_id, status,
				confirmed_by, confirmed_at, dispute_notes, resolution_notes,
				resolved_by, resolved_at, bank_name, deposit_reference,
				receipt_url, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19,$20,$21,$22,$23,$24)`,
			h.ID, h.StationID, string(h.Type), dateArg(h.Date), h.FromUserID,
			h.ToUserID, h.ExpectedAmount, h.ActualAmount, h.Difference,
			h.PreviousHandoverID, h.ShiftID, string(h.Status), h.ConfirmedBy,
			h.ConfirmedAt, h.DisputeNotes, h.ResolutionNotes, h.ResolvedBy,
			h.ResolvedAt, h.BankName, h.DepositReference, h.ReceiptURL,
			h.Notes, h.CreatedAt, h.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert handover: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateHandoverTx(ctx context.Context, h *model.CashHandover, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE cash_handovers SET actual_amount = $2, difference = $3,
				status = $4, confirmed_by = $5, confirmed_at = $6,
				dispute_notes = $7, resolution_notes = $8, resolved_by = $9,
				resolved_at = $10, bank_name = $11, deposit_reference = $12,
				receipt_url = $13, notes = $14, updated_at = $15
			WHERE id = $1`,
			h.ID, h.ActualAmount, h.Difference, string(h.Status),
			h.ConfirmedBy, h.ConfirmedAt, h.DisputeNotes, h.ResolutionNotes,
			h.ResolvedBy, h.ResolvedAt, h.BankName, h.DepositReference,
			h.ReceiptURL, h.Notes, h.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update handover: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}
