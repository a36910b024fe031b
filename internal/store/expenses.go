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

const expenseColumns = `id, station_id, category, description, amount, date,
	expense_month, receipt_number, payment_method, entered_by, created_at`

func scanExpense(row pgx.Row) (*model.Expense, error) {
	var x model.Expense
	var date time.Time
	err := row.Scan(&x.ID, &x.StationID, &x.Category, &x.Description,
		&x.Amount, &date, &x.ExpenseMonth, &x.ReceiptNumber,
		&x.PaymentMethod, &x.EnteredBy, &x.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan expense: %w", err)
	}
	x.Date = dateOf(date)
	return &x, nil
}

func (s *Store) Expense(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	return scanExpense(s.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
}

func (s *Store) ListExpenses(ctx context.Context, stationID uuid.UUID, month string) ([]*model.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE station_id = $1 AND expense_month = $2
		 ORDER BY date DESC, created_at DESC`, stationID, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []*model.Expense
	for rows.Next() {
		x, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

// ExpenseTotal sums expenses over a date window for profit reports.
func (s *Store) ExpenseTotal(ctx context.Context, stationID uuid.UUID, from, to model.Date) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE station_id = $1 AND date BETWEEN $2 AND $3`,
		stationID, dateArg(from), dateArg(to)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (s *Store) CreateExpenseTx(ctx context.Context, x *model.Expense, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO expenses (id, station_id, category, description,
				amount, date, expense_month, receipt_number, payment_method,
				entered_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			x.ID, x.StationID, x.Category, x.Description, x.Amount,
			dateArg(x.Date), x.ExpenseMonth, x.ReceiptNumber,
			x.PaymentMethod, x.EnteredBy, x.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

func (s *Store) DeleteExpenseTx(ctx context.Context, id uuid.UUID, entry *model.AuditLog) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("expense %s not found", id)
		}
		return insertAudit(ctx, tx, entry)
	})
}
