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

const transactionColumns = `id, station_id, transaction_date, total_litres,
	total_sale_value, payment_cash, payment_online, payment_credit,
	credit_allocations, reading_ids, status, settlement_id, notes,
	created_by, created_at, updated_at`

func scanTransaction(row pgx.Row) (*model.DailyTransaction, error) {
	var t model.DailyTransaction
	var status string
	var date time.Time
	var allocs []byte
	err := row.Scan(&t.ID, &t.StationID, &date, &t.TotalLitres,
		&t.TotalSaleValue, &t.Payment.Cash, &t.Payment.Online,
		&t.Payment.Credit, &allocs, &t.ReadingIDs, &status, &t.SettlementID,
		&t.Notes, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.TransactionDate = dateOf(date)
	t.Status = model.TransactionStatus(status)
	if len(allocs) > 0 {
		if err := json.Unmarshal(allocs, &t.CreditAllocs); err != nil {
			return nil, fmt.Errorf("decode credit allocations: %w", err)
		}
	}
	return &t, nil
}

func (s *Store) Transaction(ctx context.Context, id uuid.UUID) (*model.DailyTransaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM daily_transactions WHERE id = $1`, id))
}

func (s *Store) ListTransactions(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.DailyTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM daily_transactions
		 WHERE station_id = $1 AND transaction_date BETWEEN $2 AND $3
		 ORDER BY transaction_date DESC, created_at DESC`,
		stationID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.DailyTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func insertCreditEntry(ctx context.Context, tx pgx.Tx, c *model.CreditTransaction) error {
	var fuel *string
	if c.FuelType != nil {
		f := string(*c.FuelType)
		fuel = &f
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO credit_transactions (id, station_id, creditor_id, type,
			amount, fuel_type, litres, price_per_litre, reading_id,
			transaction_id, invoice_number, vehicle_number, transaction_date,
			entered_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		c.ID, c.StationID, c.CreditorID, string(c.Type), c.Amount, fuel,
		c.Litres, c.PricePerLitre, c.ReadingID, c.TransactionID,
		c.InvoiceNumber, c.VehicleNumber, dateArg(c.TransactionDate),
		c.EnteredBy, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert credit transaction: %w", err)
	}
	return nil
}

func writeCreditorCache(ctx context.Context, tx pgx.Tx, c *model.Creditor) error {
	_, err := tx.Exec(ctx, `
		UPDATE creditors SET current_balance = $2, aging_0_30 = $3,
			aging_31_60 = $4, aging_61_90 = $5, aging_over_90 = $6,
			last_transaction_date = $7, last_payment_date = $8,
			updated_at = $9
		WHERE id = $1`,
		c.ID, c.CurrentBalance, c.Aging0To30, c.Aging31To60, c.Aging61To90,
		c.AgingOver90, datePtrArg(c.LastTransactionDate),
		datePtrArg(c.LastPaymentDate), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update creditor cache: %w", err)
	}
	return nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t *model.DailyTransaction) error {
	allocs, err := jsonArg(allocsOrNil(t.CreditAllocs))
	if err != nil {
		return err
	}
	ids := t.ReadingIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO daily_transactions (id, station_id, transaction_date,
			total_litres, total_sale_value, payment_cash, payment_online,
			payment_credit, credit_allocations, reading_ids, status,
			settlement_id, notes, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		t.ID, t.StationID, dateArg(t.TransactionDate), t.TotalLitres,
		t.TotalSaleValue, t.Payment.Cash, t.Payment.Online, t.Payment.Credit,
		allocs, ids, string(t.Status), t.SettlementID, t.Notes, t.CreatedBy,
		t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// CreateTransactionTx persists the envelope, stamps its readings, and
// applies the credit-channel allocations (ledger entries plus recomputed
// creditor caches) atomically.
func (s *Store) CreateTransactionTx(ctx context.Context, t *model.DailyTransaction, credits []*model.CreditTransaction, creditors []*model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		if len(t.ReadingIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				UPDATE nozzle_readings SET transaction_id = $1,
					flow_status = 'pending_settlement'
				WHERE id = ANY($2) AND flow_status = 'unsettled'`,
				t.ID, t.ReadingIDs); err != nil {
				return fmt.Errorf("stamp transaction readings: %w", err)
			}
		}
		for _, c := range credits {
			if err := insertCreditEntry(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, c := range creditors {
			if err := writeCreditorCache(ctx, tx, c); err != nil {
				return err
			}
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) UpdateTransactionTx(ctx context.Context, t *model.DailyTransaction, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		allocs, err := jsonArg(allocsOrNil(t.CreditAllocs))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE daily_transactions SET total_litres = $2,
				total_sale_value = $3, payment_cash = $4,
				payment_online = $5, payment_credit = $6,
				credit_allocations = $7, status = $8, settlement_id = $9,
				notes = $10, updated_at = $11
			WHERE id = $1`,
			t.ID, t.TotalLitres, t.TotalSaleValue, t.Payment.Cash,
			t.Payment.Online, t.Payment.Credit, allocs, string(t.Status),
			t.SettlementID, t.Notes, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// CancelTransactionTx marks the envelope cancelled, releases its readings,
// removes the allocation ledger entries, and writes the reverted creditor
// caches.
func (s *Store) CancelTransactionTx(ctx context.Context, t *model.DailyTransaction, creditTxIDs []uuid.UUID, creditors []*model.Creditor, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE daily_transactions SET status = $2, updated_at = $3
			WHERE id = $1`, t.ID, string(t.Status), t.UpdatedAt); err != nil {
			return fmt.Errorf("cancel transaction: %w", err)
		}
		// Released readings fall back to unsettled unless a settlement
		// already owns their flow status.
		if _, err := tx.Exec(ctx, `
			UPDATE nozzle_readings SET transaction_id = NULL,
				flow_status = CASE
					WHEN flow_status = 'pending_settlement' AND settlement_id IS NULL
					THEN 'unsettled' ELSE flow_status END
			WHERE transaction_id = $1`, t.ID); err != nil {
			return fmt.Errorf("release transaction readings: %w", err)
		}
		if len(creditTxIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				DELETE FROM credit_transactions WHERE id = ANY($1)`,
				creditTxIDs); err != nil {
				return fmt.Errorf("delete allocation entries: %w", err)
			}
		}
		for _, c := range creditors {
			if err := writeCreditorCache(ctx, tx, c); err != nil {
				return err
			}
		}
		return insertAudit(ctx, tx, entry)
	})
}

func allocsOrNil(a []model.CreditAllocation) any {
	if a == nil {
		return nil
	}
	return a
}
