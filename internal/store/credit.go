package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

const creditorColumns = `id, station_id, name, business_name, phone,
	credit_limit, credit_period_days, current_balance, aging_0_30,
	aging_31_60, aging_61_90, aging_over_90, last_transaction_date,
	last_payment_date, is_flagged, flag_reason, is_active, created_at,
	updated_at`

func scanCreditor(row pgx.Row) (*model.Creditor, error) {
	var c model.Creditor
	var lastTx, lastPay *time.Time
	err := row.Scan(&c.ID, &c.StationID, &c.Name, &c.BusinessName, &c.Phone,
		&c.CreditLimit, &c.CreditPeriodDays, &c.CurrentBalance, &c.Aging0To30,
		&c.Aging31To60, &c.Aging61To90, &c.AgingOver90, &lastTx, &lastPay,
		&c.IsFlagged, &c.FlagReason, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan creditor: %w", err)
	}
	c.LastTransactionDate = datePtr(lastTx)
	c.LastPaymentDate = datePtr(lastPay)
	return &c, nil
}

func (s *Store) Creditor(ctx context.Context, id uuid.UUID) (*model.Creditor, error) {
	return scanCreditor(s.pool.QueryRow(ctx,
		`SELECT `+creditorColumns+` FROM creditors WHERE id = $1`, id))
}

func (s *Store) ListCreditors(ctx context.Context, stationID uuid.UUID, activeOnly bool) ([]*model.Creditor, error) {
	q := `SELECT ` + creditorColumns + ` FROM creditors WHERE station_id = $1`
	if activeOnly {
		q += ` AND is_active`
	}
	q += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, q, stationID)
	if err != nil {
		return nil, fmt.Errorf("list creditors: %w", err)
	}
	defer rows.Close()

	var out []*model.Creditor
	for rows.Next() {
		c, err := scanCreditor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// OutstandingCredit sums active creditors' balances for the dashboard.
func (s *Store) OutstandingCredit(ctx context.Context, stationID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(current_balance), 0) FROM creditors
		 WHERE station_id = $1 AND is_active`, stationID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum outstanding credit: %w", err)
	}
	return total, nil
}

func (s *Store) CreateCreditorTx(ctx context.Context, c *model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO creditors (id, station_id, name, business_name, phone,
				credit_limit, credit_period_days, current_balance, aging_0_30,
				aging_31_60, aging_61_90, aging_over_90,
				last_transaction_date, last_payment_date, is_flagged,
				flag_reason, is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
				$17,$18,$19)`,
			c.ID, c.StationID, c.Name, c.BusinessName, c.Phone, c.CreditLimit,
			c.CreditPeriodDays, c.CurrentBalance, c.Aging0To30, c.Aging31To60,
			c.Aging61To90, c.AgingOver90, datePtrArg(c.LastTransactionDate),
			datePtrArg(c.LastPaymentDate), c.IsFlagged, c.FlagReason,
			c.IsActive, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert creditor: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateCreditorTx(ctx context.Context, c *model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE creditors SET name = $2, business_name = $3, phone = $4,
				credit_limit = $5, credit_period_days = $6, is_flagged = $7,
				flag_reason = $8, is_active = $9, updated_at = $10
			WHERE id = $1`,
			c.ID, c.Name, c.BusinessName, c.Phone, c.CreditLimit,
			c.CreditPeriodDays, c.IsFlagged, c.FlagReason, c.IsActive,
			c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update creditor: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

const creditTxColumns = `id, station_id, creditor_id, type, amount, fuel_type,
	litres, price_per_litre, reading_id, transaction_id, invoice_number,
	vehicle_number, transaction_date, entered_by, created_at`

func scanCreditTx(row pgx.Row) (*model.CreditTransaction, error) {
	var c model.CreditTransaction
	var typ string
	var fuel *string
	var date time.Time
	err := row.Scan(&c.ID, &c.StationID, &c.CreditorID, &typ, &c.Amount,
		&fuel, &c.Litres, &c.PricePerLitre, &c.ReadingID, &c.TransactionID,
		&c.InvoiceNumber, &c.VehicleNumber, &date, &c.EnteredBy, &c.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan credit transaction: %w", err)
	}
	c.Type = model.CreditTransactionType(typ)
	if fuel != nil {
		f := model.FuelType(*fuel)
		c.FuelType = &f
	}
	c.TransactionDate = dateOf(date)
	return &c, nil
}

func collectCreditTxs(rows pgx.Rows) ([]*model.CreditTransaction, error) {
	defer rows.Close()
	var out []*model.CreditTransaction
	for rows.Next() {
		c, err := scanCreditTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreditTransaction(ctx context.Context, id uuid.UUID) (*model.CreditTransaction, error) {
	return scanCreditTx(s.pool.QueryRow(ctx,
		`SELECT `+creditTxColumns+` FROM credit_transactions WHERE id = $1`, id))
}

// LedgerFor returns the creditor's full ledger, oldest entry first; FIFO
// allocation depends on this order.
func (s *Store) LedgerFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+creditTxColumns+` FROM credit_transactions
		 WHERE creditor_id = $1
		 ORDER BY transaction_date, created_at`, creditorID)
	if err != nil {
		return nil, fmt.Errorf("load credit ledger: %w", err)
	}
	return collectCreditTxs(rows)
}

// CreditEntriesForTransaction returns the ledger entries a daily transaction
// created through its credit allocations.
func (s *Store) CreditEntriesForTransaction(ctx context.Context, txID uuid.UUID) ([]*model.CreditTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+creditTxColumns+` FROM credit_transactions
		 WHERE transaction_id = $1
		 ORDER BY created_at`, txID)
	if err != nil {
		return nil, fmt.Errorf("load transaction credit entries: %w", err)
	}
	return collectCreditTxs(rows)
}

// LinksFor returns all settlement links touching the creditor's ledger.
func (s *Store) LinksFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditSettlementLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.settlement_tx_id, l.credit_tx_id, l.allocated_amount, l.created_at
		FROM credit_settlement_links l
		JOIN credit_transactions t ON t.id = l.credit_tx_id
		WHERE t.creditor_id = $1
		ORDER BY l.created_at`, creditorID)
	if err != nil {
		return nil, fmt.Errorf("load settlement links: %w", err)
	}
	defer rows.Close()

	var out []*model.CreditSettlementLink
	for rows.Next() {
		var l model.CreditSettlementLink
		if err := rows.Scan(&l.ID, &l.SettlementTxID, &l.CreditTxID,
			&l.Amount, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan settlement link: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// RecordCreditTx persists the ledger entry, its settlement links, and the
// recomputed creditor cache in one transaction.
func (s *Store) RecordCreditTx(ctx context.Context, entryTx *model.CreditTransaction, links []*model.CreditSettlementLink, c *model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertCreditEntry(ctx, tx, entryTx); err != nil {
			return err
		}
		for _, l := range links {
			if _, err := tx.Exec(ctx, `
				INSERT INTO credit_settlement_links (id, settlement_tx_id,
					credit_tx_id, allocated_amount, created_at)
				VALUES ($1,$2,$3,$4,$5)`,
				l.ID, l.SettlementTxID, l.CreditTxID, l.Amount, l.CreatedAt); err != nil {
				return fmt.Errorf("insert settlement link: %w", err)
			}
		}
		if err := writeCreditorCache(ctx, tx, c); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}

// DeleteCreditTx removes a ledger entry (links cascade) and writes the
// recomputed creditor cache.
func (s *Store) DeleteCreditTx(ctx context.Context, txID uuid.UUID, c *model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM credit_transactions WHERE id = $1`, txID)
		if err != nil {
			return fmt.Errorf("delete credit transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("credit transaction %s not found", txID)
		}
		if err := writeCreditorCache(ctx, tx, c); err != nil {
			return err
		}
		return insertAudit(ctx, tx, entry)
	})
}
