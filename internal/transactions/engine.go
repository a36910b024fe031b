// Package transactions groups readings into daily station envelopes that
// declare how the day's sales were paid.
package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/credit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/keymutex"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
)

// Store is the persistence slice the transaction engine needs.
type Store interface {
	Transaction(ctx context.Context, id uuid.UUID) (*model.DailyTransaction, error)
	ListTransactions(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.DailyTransaction, error)
	ReadingsByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.NozzleReading, error)

	Creditor(ctx context.Context, id uuid.UUID) (*model.Creditor, error)
	LedgerFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditTransaction, error)
	LinksFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditSettlementLink, error)
	// CreditEntriesForTransaction returns the ledger entries a daily
	// transaction's allocations created.
	CreditEntriesForTransaction(ctx context.Context, txID uuid.UUID) ([]*model.CreditTransaction, error)

	// CreateTransactionTx persists the envelope, stamps each reading with the
	// transaction id and moves its flow status to pending_settlement, inserts
	// the allocation ledger entries, applies the recomputed creditor rows,
	// and writes the audit row, all in one database transaction.
	CreateTransactionTx(ctx context.Context, tx *model.DailyTransaction, credits []*model.CreditTransaction, creditors []*model.Creditor, entry *model.AuditLog) error
	UpdateTransactionTx(ctx context.Context, tx *model.DailyTransaction, entry *model.AuditLog) error
	// CancelTransactionTx marks the envelope cancelled, detaches its
	// readings (returning them to unsettled unless a settlement owns them),
	// deletes the allocation ledger entries, and applies the recomputed
	// creditor rows.
	CancelTransactionTx(ctx context.Context, tx *model.DailyTransaction, creditTxIDs []uuid.UUID, creditors []*model.Creditor, entry *model.AuditLog) error
}

// Engine serializes envelope creation per (station, date) so a reading can
// appear in at most one active transaction.
type Engine struct {
	store Store
	authz auth.Authorizer
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, locks: keymutex.New(), clock: clk}
}

func stationDateKey(stationID uuid.UUID, date model.Date) string {
	return fmt.Sprintf("%s|%s", stationID, date)
}

// CreateInput is the caller-supplied part of a daily transaction.
type CreateInput struct {
	StationID    uuid.UUID
	Date         model.Date
	ReadingIDs   []uuid.UUID
	Payment      model.PaymentBreakdown
	CreditAllocs []model.CreditAllocation
	Notes        string
}

// Create validates the reading set and the payment breakdown, applies credit
// allocations to their creditors, and persists everything atomically.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.DailyTransaction, error) {
	if len(in.ReadingIDs) == 0 {
		return nil, apperr.New(apperr.KindValidation, "readingIds is required")
	}
	if in.Date.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "transactionDate is required")
	}
	if in.Payment.Cash.IsNegative() || in.Payment.Online.IsNegative() || in.Payment.Credit.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "payment channels cannot be negative")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(stationDateKey(in.StationID, in.Date))
	defer unlock()

	readings, err := e.store.ReadingsByIDs(ctx, in.ReadingIDs)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load readings")
	}
	if len(readings) != len(in.ReadingIDs) {
		return nil, apperr.New(apperr.KindValidation, "one or more readings do not exist")
	}

	totalLitres := decimal.Zero
	totalSale := decimal.Zero
	for _, r := range readings {
		if r.StationID != in.StationID {
			return nil, apperr.Newf(apperr.KindValidation, "reading %s belongs to another station", r.ID)
		}
		if !r.ReadingDate.Equal(in.Date) {
			return nil, apperr.Newf(apperr.KindValidation, "reading %s is dated %s, not %s", r.ID, r.ReadingDate, in.Date)
		}
		if r.IsSample {
			return nil, apperr.Newf(apperr.KindValidation, "reading %s is a sample and cannot be sold", r.ID)
		}
		if r.ApprovalStatus == model.ApprovalRejected {
			return nil, apperr.Newf(apperr.KindValidation, "reading %s is rejected", r.ID)
		}
		if r.FlowStatus == model.FlowSettled {
			return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSettlementLocked, "reading %s is already settled", r.ID)
		}
		if r.TransactionID != nil {
			return nil, apperr.Newf(apperr.KindConflict, "reading %s already belongs to transaction %s", r.ID, *r.TransactionID)
		}
		totalLitres = totalLitres.Add(r.LitresSold)
		totalSale = totalSale.Add(r.TotalAmount)
	}
	totalLitres = money.Round3(totalLitres)
	totalSale = money.Round2(totalSale)

	if !money.WithinCent(in.Payment.Total(), totalSale) {
		return nil, apperr.Newf(apperr.KindValidation,
			"payment breakdown %s does not match sale total %s", in.Payment.Total(), totalSale)
	}
	allocTotal := decimal.Zero
	for _, a := range in.CreditAllocs {
		if !a.Amount.IsPositive() {
			return nil, apperr.New(apperr.KindValidation, "credit allocation amounts must be positive")
		}
		allocTotal = allocTotal.Add(a.Amount)
	}
	if !money.WithinCent(allocTotal, in.Payment.Credit) {
		return nil, apperr.Newf(apperr.KindValidation,
			"credit allocations %s do not match credit channel %s", allocTotal, in.Payment.Credit)
	}

	now := e.clock.Now()
	tx := &model.DailyTransaction{
		ID:              uuid.New(),
		StationID:       in.StationID,
		TransactionDate: in.Date,
		TotalLitres:     totalLitres,
		TotalSaleValue:  totalSale,
		Payment:         in.Payment,
		CreditAllocs:    in.CreditAllocs,
		ReadingIDs:      in.ReadingIDs,
		Status:          model.TransactionSubmitted,
		Notes:           in.Notes,
		CreatedBy:       actor.User.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	credits, creditors, err := e.applyAllocations(ctx, tx, in.CreditAllocs, now)
	if err != nil {
		return nil, err
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "transaction_created",
		EntityType: "daily_transaction", EntityID: &tx.ID,
		NewValues: map[string]any{
			"date":        in.Date.String(),
			"totalSale":   totalSale.String(),
			"cash":        in.Payment.Cash.String(),
			"online":      in.Payment.Online.String(),
			"credit":      in.Payment.Credit.String(),
			"readings":    len(in.ReadingIDs),
			"allocations": len(in.CreditAllocs),
		},
		Category: model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreateTransactionTx(ctx, tx, credits, creditors, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create transaction")
	}
	return tx, nil
}

// applyAllocations turns each allocation into a ledger entry and a
// recomputed creditor row, enforcing the credit-limit and flag guards.
// Allocations naming the same creditor accumulate: the limit is checked
// against the running balance, and one creditor row carries them all.
func (e *Engine) applyAllocations(ctx context.Context, tx *model.DailyTransaction, allocs []model.CreditAllocation, now time.Time) ([]*model.CreditTransaction, []*model.Creditor, error) {
	var credits []*model.CreditTransaction
	var order []uuid.UUID
	working := make(map[uuid.UUID]*model.Creditor)
	ledgers := make(map[uuid.UUID][]*model.CreditTransaction)
	links := make(map[uuid.UUID][]*model.CreditSettlementLink)
	today := model.DateOf(now)
	for _, a := range allocs {
		c, seen := working[a.CreditorID]
		if !seen {
			stored, err := e.store.Creditor(ctx, a.CreditorID)
			if err != nil || stored == nil {
				return nil, nil, apperr.Wrap(apperr.KindNotFound, err, fmt.Sprintf("creditor %s not found", a.CreditorID))
			}
			if stored.StationID != tx.StationID {
				return nil, nil, apperr.Newf(apperr.KindValidation, "creditor %s belongs to another station", stored.ID)
			}
			ledger, err := e.store.LedgerFor(ctx, stored.ID)
			if err != nil {
				return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load ledger")
			}
			ls, err := e.store.LinksFor(ctx, stored.ID)
			if err != nil {
				return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load settlement links")
			}
			cp := *stored
			c = &cp
			working[a.CreditorID] = c
			ledgers[a.CreditorID] = ledger
			links[a.CreditorID] = ls
			order = append(order, a.CreditorID)
		}
		if err := credit.Allow(c, a.Amount); err != nil {
			return nil, nil, err
		}

		amount := money.Round2(a.Amount)
		txID := tx.ID
		entry := &model.CreditTransaction{
			ID:              uuid.New(),
			StationID:       tx.StationID,
			CreditorID:      c.ID,
			Type:            model.CreditTypeCredit,
			Amount:          amount,
			TransactionID:   &txID,
			TransactionDate: tx.TransactionDate,
			EnteredBy:       tx.CreatedBy,
			CreatedAt:       now,
		}
		ledgers[a.CreditorID] = append(ledgers[a.CreditorID], entry)
		c.CurrentBalance = money.Round2(c.CurrentBalance.Add(amount))
		date := tx.TransactionDate
		c.LastTransactionDate = &date
		c.UpdatedAt = now
		credits = append(credits, entry)
	}

	creditors := make([]*model.Creditor, 0, len(order))
	for _, id := range order {
		c := working[id]
		buckets := credit.BucketsOf(ledgers[id], links[id], c.CurrentBalance, today)
		c.Aging0To30 = buckets.Bucket0To30
		c.Aging31To60 = buckets.Bucket31To60
		c.Aging61To90 = buckets.Bucket61To90
		c.AgingOver90 = buckets.BucketOver90
		creditors = append(creditors, c)
	}
	return credits, creditors, nil
}

// UpdateInput carries the fields an open envelope may change. The credit
// channel is immutable after creation; cancel and recreate to change
// allocations.
type UpdateInput struct {
	Payment *model.PaymentBreakdown
	Notes   *string
}

// Update adjusts notes or the cash/online split while status is draft or
// submitted.
func (e *Engine) Update(ctx context.Context, actor auth.Actor, txID uuid.UUID, in UpdateInput) (*model.DailyTransaction, error) {
	tx, err := e.store.Transaction(ctx, txID)
	if err != nil || tx == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "transaction not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, tx.StationID); err != nil {
		return nil, err
	}
	if tx.Status != model.TransactionDraft && tx.Status != model.TransactionSubmitted {
		return nil, apperr.Newf(apperr.KindConflict, "transaction is %s and can no longer change", tx.Status)
	}

	unlock := e.locks.Lock(stationDateKey(tx.StationID, tx.TransactionDate))
	defer unlock()

	updated := *tx
	if in.Payment != nil {
		if in.Payment.Cash.IsNegative() || in.Payment.Online.IsNegative() || in.Payment.Credit.IsNegative() {
			return nil, apperr.New(apperr.KindValidation, "payment channels cannot be negative")
		}
		if !in.Payment.Credit.Equal(tx.Payment.Credit) {
			return nil, apperr.New(apperr.KindValidation, "credit channel cannot change; cancel and recreate the transaction")
		}
		if !money.WithinCent(in.Payment.Total(), tx.TotalSaleValue) {
			return nil, apperr.Newf(apperr.KindValidation,
				"payment breakdown %s does not match sale total %s", in.Payment.Total(), tx.TotalSaleValue)
		}
		updated.Payment = *in.Payment
	}
	if in.Notes != nil {
		updated.Notes = *in.Notes
	}

	now := e.clock.Now()
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &tx.StationID, Action: "transaction_updated",
		EntityType: "daily_transaction", EntityID: &tx.ID,
		OldValues: map[string]any{"cash": tx.Payment.Cash.String(), "online": tx.Payment.Online.String()},
		NewValues: map[string]any{"cash": updated.Payment.Cash.String(), "online": updated.Payment.Online.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.UpdateTransactionTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update transaction")
	}
	return &updated, nil
}

// Cancel voids an open envelope: readings detach, allocation ledger entries
// are removed, and creditor balances are recomputed.
func (e *Engine) Cancel(ctx context.Context, actor auth.Actor, txID uuid.UUID, reason string) (*model.DailyTransaction, error) {
	tx, err := e.store.Transaction(ctx, txID)
	if err != nil || tx == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "transaction not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, tx.StationID); err != nil {
		return nil, err
	}
	if tx.Status != model.TransactionDraft && tx.Status != model.TransactionSubmitted {
		return nil, apperr.Newf(apperr.KindConflict, "transaction is %s and cannot be cancelled", tx.Status)
	}

	unlock := e.locks.Lock(stationDateKey(tx.StationID, tx.TransactionDate))
	defer unlock()

	entries, err := e.store.CreditEntriesForTransaction(ctx, tx.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load allocation entries")
	}

	now := e.clock.Now()
	today := model.DateOf(now)
	var creditTxIDs []uuid.UUID
	var creditors []*model.Creditor
	for _, ce := range entries {
		creditTxIDs = append(creditTxIDs, ce.ID)

		c, err := e.store.Creditor(ctx, ce.CreditorID)
		if err != nil || c == nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "load creditor")
		}
		ledger, err := e.store.LedgerFor(ctx, c.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "load ledger")
		}
		links, err := e.store.LinksFor(ctx, c.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "load settlement links")
		}
		kept := ledger[:0]
		for _, t := range ledger {
			if t.ID != ce.ID {
				kept = append(kept, t)
			}
		}
		balance := money.Round2(c.CurrentBalance.Sub(ce.Amount))
		buckets := credit.BucketsOf(kept, links, balance, today)

		updated := *c
		updated.CurrentBalance = balance
		updated.Aging0To30 = buckets.Bucket0To30
		updated.Aging31To60 = buckets.Bucket31To60
		updated.Aging61To90 = buckets.Bucket61To90
		updated.AgingOver90 = buckets.BucketOver90
		updated.UpdatedAt = now
		creditors = append(creditors, &updated)
	}

	cancelled := *tx
	cancelled.Status = model.TransactionCancelled
	if reason != "" {
		cancelled.Notes = reason
	}
	cancelled.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &tx.StationID, Action: "transaction_cancelled",
		EntityType: "daily_transaction", EntityID: &tx.ID,
		OldValues: map[string]any{"status": string(tx.Status)},
		NewValues: map[string]any{"status": string(model.TransactionCancelled), "reason": reason},
		Category:  model.CategoryFinance, Severity: model.SeverityWarning, Success: true,
	}.Build(now)

	if err := e.store.CancelTransactionTx(ctx, &cancelled, creditTxIDs, creditors, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "cancel transaction")
	}
	return &cancelled, nil
}

// Summary aggregates a station's envelopes over a date window.
type Summary struct {
	Count       int                    `json:"count"`
	TotalLitres decimal.Decimal        `json:"totalLitres"`
	TotalSale   decimal.Decimal        `json:"totalSaleValue"`
	ByChannel   model.PaymentBreakdown `json:"byChannel"`
}

// Summarize sums non-cancelled transactions in [from, to].
func (e *Engine) Summarize(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) (*Summary, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	txs, err := e.store.ListTransactions(ctx, stationID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list transactions")
	}
	s := &Summary{TotalLitres: decimal.Zero, TotalSale: decimal.Zero}
	s.ByChannel.Cash, s.ByChannel.Online, s.ByChannel.Credit = decimal.Zero, decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.Status == model.TransactionCancelled {
			continue
		}
		s.Count++
		s.TotalLitres = s.TotalLitres.Add(tx.TotalLitres)
		s.TotalSale = s.TotalSale.Add(tx.TotalSaleValue)
		s.ByChannel.Cash = s.ByChannel.Cash.Add(tx.Payment.Cash)
		s.ByChannel.Online = s.ByChannel.Online.Add(tx.Payment.Online)
		s.ByChannel.Credit = s.ByChannel.Credit.Add(tx.Payment.Credit)
	}
	return s, nil
}

// List returns a station's envelopes in [from, to], cancelled included.
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) ([]*model.DailyTransaction, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	txs, err := e.store.ListTransactions(ctx, stationID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list transactions")
	}
	return txs, nil
}

// Get returns one envelope after a scope check.
func (e *Engine) Get(ctx context.Context, actor auth.Actor, txID uuid.UUID) (*model.DailyTransaction, error) {
	tx, err := e.store.Transaction(ctx, txID)
	if err != nil || tx == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "transaction not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, tx.StationID); err != nil {
		return nil, err
	}
	return tx, nil
}
