// Package credit maintains the deferred-payment ledger: per-creditor
// balances, settlement-to-invoice links, and aging buckets.
package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/keymutex"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
)

// Store is the persistence slice the credit engine needs. Ledger lists are
// ordered by (transactionDate, createdAt) ascending.
type Store interface {
	Creditor(ctx context.Context, id uuid.UUID) (*model.Creditor, error)
	ListCreditors(ctx context.Context, stationID uuid.UUID, activeOnly bool) ([]*model.Creditor, error)
	CreditTransaction(ctx context.Context, id uuid.UUID) (*model.CreditTransaction, error)
	LedgerFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditTransaction, error)
	LinksFor(ctx context.Context, creditorID uuid.UUID) ([]*model.CreditSettlementLink, error)

	CreateCreditorTx(ctx context.Context, c *model.Creditor, entry *model.AuditLog) error
	UpdateCreditorTx(ctx context.Context, c *model.Creditor, entry *model.AuditLog) error
	// RecordCreditTx persists the ledger entry, any settlement links, and the
	// recomputed creditor row in one database transaction.
	RecordCreditTx(ctx context.Context, tx *model.CreditTransaction, links []*model.CreditSettlementLink, c *model.Creditor, entry *model.AuditLog) error
	// DeleteCreditTx removes the entry plus its links and applies the
	// recomputed creditor row.
	DeleteCreditTx(ctx context.Context, txID uuid.UUID, c *model.Creditor, entry *model.AuditLog) error
}

// Plans is the quota surface the engine consults.
type Plans interface {
	PlanForStation(ctx context.Context, stationID uuid.UUID) (*model.Plan, error)
	CheckCreditorCeiling(ctx context.Context, stationID uuid.UUID) error
	RequireFeature(plan *model.Plan, f quota.Feature) error
}

// Engine serializes all ledger writes for one creditor through a
// creditor-scoped mutex so balance recomputation never races.
type Engine struct {
	store Store
	authz auth.Authorizer
	plans Plans
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, plans Plans, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, plans: plans, locks: keymutex.New(), clock: clk}
}

// CreditorInput is the caller-supplied part of a creditor record.
type CreditorInput struct {
	StationID        uuid.UUID
	Name             string
	BusinessName     string
	Phone            string
	CreditLimit      decimal.Decimal
	CreditPeriodDays int
}

// CreateCreditor registers a deferred-payment customer, subject to the plan
// ceiling and the credit feature flag.
func (e *Engine) CreateCreditor(ctx context.Context, actor auth.Actor, in CreditorInput) (*model.Creditor, error) {
	if in.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	if in.CreditLimit.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "creditLimit cannot be negative")
	}
	if in.CreditPeriodDays < 0 {
		return nil, apperr.New(apperr.KindValidation, "creditPeriodDays cannot be negative")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}
	plan, err := e.plans.PlanForStation(ctx, in.StationID)
	if err != nil {
		return nil, err
	}
	if err := e.plans.RequireFeature(plan, quota.FeatureCredits); err != nil {
		return nil, err
	}
	if err := e.plans.CheckCreditorCeiling(ctx, in.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	c := &model.Creditor{
		ID:               uuid.New(),
		StationID:        in.StationID,
		Name:             in.Name,
		BusinessName:     in.BusinessName,
		Phone:            in.Phone,
		CreditLimit:      money.Round2(in.CreditLimit),
		CreditPeriodDays: in.CreditPeriodDays,
		CurrentBalance:   decimal.Zero,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "creditor_created",
		EntityType: "creditor", EntityID: &c.ID,
		NewValues: map[string]any{"name": c.Name, "creditLimit": c.CreditLimit.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreateCreditorTx(ctx, c, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create creditor")
	}
	return c, nil
}

// CreditorUpdate carries the mutable creditor fields; nil means unchanged.
type CreditorUpdate struct {
	Name             *string
	BusinessName     *string
	Phone            *string
	CreditLimit      *decimal.Decimal
	CreditPeriodDays *int
	IsActive         *bool
	IsFlagged        *bool
	FlagReason       *string
}

// UpdateCreditor applies partial changes, including flagging and unflagging.
func (e *Engine) UpdateCreditor(ctx context.Context, actor auth.Actor, creditorID uuid.UUID, upd CreditorUpdate) (*model.Creditor, error) {
	unlock := e.locks.Lock(creditorID.String())
	defer unlock()

	c, err := e.store.Creditor(ctx, creditorID)
	if err != nil || c == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "creditor not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, c.StationID); err != nil {
		return nil, err
	}

	old := map[string]any{
		"creditLimit": c.CreditLimit.String(),
		"isFlagged":   c.IsFlagged,
		"isActive":    c.IsActive,
	}
	updated := *c
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, apperr.New(apperr.KindValidation, "name cannot be empty")
		}
		updated.Name = *upd.Name
	}
	if upd.BusinessName != nil {
		updated.BusinessName = *upd.BusinessName
	}
	if upd.Phone != nil {
		updated.Phone = *upd.Phone
	}
	if upd.CreditLimit != nil {
		if upd.CreditLimit.IsNegative() {
			return nil, apperr.New(apperr.KindValidation, "creditLimit cannot be negative")
		}
		updated.CreditLimit = money.Round2(*upd.CreditLimit)
	}
	if upd.CreditPeriodDays != nil {
		if *upd.CreditPeriodDays < 0 {
			return nil, apperr.New(apperr.KindValidation, "creditPeriodDays cannot be negative")
		}
		updated.CreditPeriodDays = *upd.CreditPeriodDays
	}
	if upd.IsActive != nil {
		updated.IsActive = *upd.IsActive
	}
	if upd.IsFlagged != nil {
		updated.IsFlagged = *upd.IsFlagged
		if !updated.IsFlagged {
			updated.FlagReason = ""
		}
	}
	if upd.FlagReason != nil {
		updated.FlagReason = *upd.FlagReason
	}
	if updated.IsFlagged && updated.FlagReason == "" {
		return nil, apperr.New(apperr.KindValidation, "flagReason is required when flagging a creditor")
	}

	now := e.clock.Now()
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &c.StationID, Action: "creditor_updated",
		EntityType: "creditor", EntityID: &c.ID,
		OldValues: old,
		NewValues: map[string]any{
			"creditLimit": updated.CreditLimit.String(),
			"isFlagged":   updated.IsFlagged,
			"isActive":    updated.IsActive,
		},
		Category: model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.UpdateCreditorTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update creditor")
	}
	return &updated, nil
}

// CreditInput records a new deferred-payment sale against a creditor.
type CreditInput struct {
	CreditorID      uuid.UUID
	Amount          decimal.Decimal
	FuelType        *model.FuelType
	Litres          *decimal.Decimal
	PricePerLitre   *decimal.Decimal
	ReadingID       *uuid.UUID
	InvoiceNumber   string
	VehicleNumber   string
	TransactionDate model.Date
}

// RecordCredit appends a credit entry. Refused when the creditor is flagged
// or the new balance would exceed a positive credit limit.
func (e *Engine) RecordCredit(ctx context.Context, actor auth.Actor, in CreditInput) (*model.CreditTransaction, error) {
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if in.TransactionDate.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "transactionDate is required")
	}

	unlock := e.locks.Lock(in.CreditorID.String())
	defer unlock()

	c, err := e.store.Creditor(ctx, in.CreditorID)
	if err != nil || c == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "creditor not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, c.StationID); err != nil {
		return nil, err
	}
	if err := Allow(c, in.Amount); err != nil {
		return nil, err
	}
	if in.TransactionDate.After(model.DateOf(e.clock.Now())) {
		return nil, apperr.Coded(apperr.KindValidation, apperr.CodeFutureDate, "transactionDate is in the future")
	}

	now := e.clock.Now()
	amount := money.Round2(in.Amount)
	tx := &model.CreditTransaction{
		ID:              uuid.New(),
		StationID:       c.StationID,
		CreditorID:      c.ID,
		Type:            model.CreditTypeCredit,
		Amount:          amount,
		FuelType:        in.FuelType,
		Litres:          in.Litres,
		PricePerLitre:   in.PricePerLitre,
		ReadingID:       in.ReadingID,
		InvoiceNumber:   in.InvoiceNumber,
		VehicleNumber:   in.VehicleNumber,
		TransactionDate: in.TransactionDate,
		EnteredBy:       actor.User.ID,
		CreatedAt:       now,
	}

	updated, err := e.recompute(ctx, c, tx, nil, nil, now)
	if err != nil {
		return nil, err
	}
	txDate := in.TransactionDate
	updated.LastTransactionDate = &txDate

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &c.StationID, Action: "credit_recorded",
		EntityType: "credit_transaction", EntityID: &tx.ID,
		OldValues: map[string]any{"currentBalance": c.CurrentBalance.String()},
		NewValues: map[string]any{"amount": amount.String(), "currentBalance": updated.CurrentBalance.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.RecordCreditTx(ctx, tx, nil, updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "record credit")
	}
	return tx, nil
}

// Allow applies the credit-limit guard without writing anything.
func Allow(c *model.Creditor, amount decimal.Decimal) error {
	if c.IsFlagged {
		return apperr.Coded(apperr.KindConflict, apperr.CodeCreditorFlagged, "creditor is flagged: "+c.FlagReason)
	}
	if c.CreditLimit.IsPositive() && c.CurrentBalance.Add(amount).GreaterThan(c.CreditLimit) {
		return apperr.Codedf(apperr.KindConflict, apperr.CodeCreditLimitExceeded,
			"credit limit %s exceeded: balance %s + %s", c.CreditLimit, c.CurrentBalance, amount)
	}
	return nil
}

// LinkSpec is a caller-chosen allocation of a settlement to one credit entry.
type LinkSpec struct {
	CreditTxID uuid.UUID
	Amount     decimal.Decimal
}

// SettlementInput records a payment against outstanding credit.
type SettlementInput struct {
	CreditorID      uuid.UUID
	Amount          decimal.Decimal
	TransactionDate model.Date
	InvoiceNumber   string
	// Links pins the payment to specific invoices. Empty means allocate
	// oldest-invoice-first.
	Links []LinkSpec
}

// RecordSettlement appends a settlement entry and its per-invoice links.
// When no links are supplied the amount is allocated FIFO by transaction
// date then creation time; any residual stays as unallocated credit.
func (e *Engine) RecordSettlement(ctx context.Context, actor auth.Actor, in SettlementInput) (*model.CreditTransaction, []*model.CreditSettlementLink, error) {
	if !in.Amount.IsPositive() {
		return nil, nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if in.TransactionDate.IsZero() {
		return nil, nil, apperr.New(apperr.KindValidation, "transactionDate is required")
	}

	unlock := e.locks.Lock(in.CreditorID.String())
	defer unlock()

	c, err := e.store.Creditor(ctx, in.CreditorID)
	if err != nil || c == nil {
		return nil, nil, apperr.Wrap(apperr.KindNotFound, err, "creditor not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, c.StationID); err != nil {
		return nil, nil, err
	}

	ledger, err := e.store.LedgerFor(ctx, c.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load ledger")
	}
	links, err := e.store.LinksFor(ctx, c.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load settlement links")
	}
	remaining := remainingByCredit(ledger, links)

	now := e.clock.Now()
	amount := money.Round2(in.Amount)
	tx := &model.CreditTransaction{
		ID:              uuid.New(),
		StationID:       c.StationID,
		CreditorID:      c.ID,
		Type:            model.CreditTypeSettlement,
		Amount:          amount,
		InvoiceNumber:   in.InvoiceNumber,
		TransactionDate: in.TransactionDate,
		EnteredBy:       actor.User.ID,
		CreatedAt:       now,
	}

	var newLinks []*model.CreditSettlementLink
	if len(in.Links) > 0 {
		newLinks, err = e.explicitLinks(tx, in.Links, remaining, amount, now)
	} else {
		newLinks = fifoLinks(tx, ledger, remaining, amount, now)
	}
	if err != nil {
		return nil, nil, err
	}

	updated, err := e.recompute(ctx, c, tx, newLinks, nil, now)
	if err != nil {
		return nil, nil, err
	}
	payDate := in.TransactionDate
	updated.LastPaymentDate = &payDate

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &c.StationID, Action: "credit_settled",
		EntityType: "credit_transaction", EntityID: &tx.ID,
		OldValues: map[string]any{"currentBalance": c.CurrentBalance.String()},
		NewValues: map[string]any{"amount": amount.String(), "currentBalance": updated.CurrentBalance.String(), "links": len(newLinks)},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.RecordCreditTx(ctx, tx, newLinks, updated, entry); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "record settlement")
	}
	return tx, newLinks, nil
}

func (e *Engine) explicitLinks(tx *model.CreditTransaction, specs []LinkSpec, remaining map[uuid.UUID]decimal.Decimal, amount decimal.Decimal, now time.Time) ([]*model.CreditSettlementLink, error) {
	total := decimal.Zero
	out := make([]*model.CreditSettlementLink, 0, len(specs))
	for _, s := range specs {
		if !s.Amount.IsPositive() {
			return nil, apperr.New(apperr.KindValidation, "link amount must be positive")
		}
		rem, ok := remaining[s.CreditTxID]
		if !ok {
			return nil, apperr.New(apperr.KindValidation, "link references a transaction that is not an open credit of this creditor")
		}
		if s.Amount.GreaterThan(rem) {
			return nil, apperr.Newf(apperr.KindValidation, "link amount %s exceeds remaining %s on credit %s", s.Amount, rem, s.CreditTxID)
		}
		remaining[s.CreditTxID] = rem.Sub(s.Amount)
		total = total.Add(s.Amount)
		out = append(out, &model.CreditSettlementLink{
			ID:             uuid.New(),
			SettlementTxID: tx.ID,
			CreditTxID:     s.CreditTxID,
			Amount:         money.Round2(s.Amount),
			CreatedAt:      now,
		})
	}
	if total.GreaterThan(amount) {
		return nil, apperr.Newf(apperr.KindValidation, "links total %s exceeds settlement amount %s", total, amount)
	}
	return out, nil
}

func fifoLinks(tx *model.CreditTransaction, ledger []*model.CreditTransaction, remaining map[uuid.UUID]decimal.Decimal, amount decimal.Decimal, now time.Time) []*model.CreditSettlementLink {
	var out []*model.CreditSettlementLink
	left := amount
	for _, entry := range ledger { // ledger is oldest-first
		if entry.Type != model.CreditTypeCredit || !left.IsPositive() {
			continue
		}
		rem := remaining[entry.ID]
		if !rem.IsPositive() {
			continue
		}
		alloc := decimal.Min(rem, left)
		left = left.Sub(alloc)
		remaining[entry.ID] = rem.Sub(alloc)
		out = append(out, &model.CreditSettlementLink{
			ID:             uuid.New(),
			SettlementTxID: tx.ID,
			CreditTxID:     entry.ID,
			Amount:         alloc,
			CreatedAt:      now,
		})
	}
	return out
}

// DeleteTransaction removes a ledger entry (with its links) and recomputes
// the creditor balance in the same database transaction.
func (e *Engine) DeleteTransaction(ctx context.Context, actor auth.Actor, txID uuid.UUID) error {
	tx, err := e.store.CreditTransaction(ctx, txID)
	if err != nil || tx == nil {
		return apperr.Wrap(apperr.KindNotFound, err, "credit transaction not found")
	}

	unlock := e.locks.Lock(tx.CreditorID.String())
	defer unlock()

	c, err := e.store.Creditor(ctx, tx.CreditorID)
	if err != nil || c == nil {
		return apperr.Wrap(apperr.KindNotFound, err, "creditor not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, c.StationID); err != nil {
		return err
	}

	now := e.clock.Now()
	updated, err := e.recompute(ctx, c, nil, nil, &txID, now)
	if err != nil {
		return err
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &c.StationID, Action: "credit_transaction_deleted",
		EntityType: "credit_transaction", EntityID: &txID,
		OldValues: map[string]any{"type": string(tx.Type), "amount": tx.Amount.String(), "currentBalance": c.CurrentBalance.String()},
		NewValues: map[string]any{"currentBalance": updated.CurrentBalance.String()},
		Category:  model.CategoryFinance, Severity: model.SeverityWarning, Success: true,
	}.Build(now)

	if err := e.store.DeleteCreditTx(ctx, txID, updated, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "delete credit transaction")
	}
	return nil
}

// recompute rebuilds the cached balance and aging buckets from the ledger,
// applying an optional pending insert (add, with its not-yet-persisted
// links) or delete (drop).
func (e *Engine) recompute(ctx context.Context, c *model.Creditor, add *model.CreditTransaction, addLinks []*model.CreditSettlementLink, drop *uuid.UUID, now time.Time) (*model.Creditor, error) {
	ledger, err := e.store.LedgerFor(ctx, c.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load ledger")
	}
	links, err := e.store.LinksFor(ctx, c.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load settlement links")
	}
	if add != nil {
		ledger = append(ledger, add)
		links = append(links, addLinks...)
	}
	if drop != nil {
		kept := ledger[:0]
		for _, t := range ledger {
			if t.ID != *drop {
				kept = append(kept, t)
			}
		}
		ledger = kept
		keptLinks := links[:0]
		for _, l := range links {
			if l.SettlementTxID != *drop && l.CreditTxID != *drop {
				keptLinks = append(keptLinks, l)
			}
		}
		links = keptLinks
	}

	balance := decimal.Zero
	for _, t := range ledger {
		switch t.Type {
		case model.CreditTypeCredit:
			balance = balance.Add(t.Amount)
		case model.CreditTypeSettlement:
			balance = balance.Sub(t.Amount)
		}
	}

	buckets := BucketsOf(ledger, links, balance, model.DateOf(now))

	updated := *c
	updated.CurrentBalance = money.Round2(balance)
	updated.Aging0To30 = buckets.Bucket0To30
	updated.Aging31To60 = buckets.Bucket31To60
	updated.Aging61To90 = buckets.Bucket61To90
	updated.AgingOver90 = buckets.BucketOver90
	updated.UpdatedAt = now
	return &updated, nil
}

// remainingByCredit is the unallocated amount per open credit entry.
func remainingByCredit(ledger []*model.CreditTransaction, links []*model.CreditSettlementLink) map[uuid.UUID]decimal.Decimal {
	remaining := make(map[uuid.UUID]decimal.Decimal)
	for _, t := range ledger {
		if t.Type == model.CreditTypeCredit {
			remaining[t.ID] = t.Amount
		}
	}
	for _, l := range links {
		if rem, ok := remaining[l.CreditTxID]; ok {
			remaining[l.CreditTxID] = rem.Sub(l.Amount)
		}
	}
	return remaining
}

// BucketsOf distributes the outstanding balance across age buckets. When all
// settlements are pinned to invoices through links, the buckets are exact
// sums of remaining invoice amounts. Otherwise the raw per-bucket remainders
// are scaled by balance ÷ Σ remainders, which is close enough for reporting.
func BucketsOf(ledger []*model.CreditTransaction, links []*model.CreditSettlementLink, balance decimal.Decimal, today model.Date) model.AgingBuckets {
	var b model.AgingBuckets
	b.Bucket0To30, b.Bucket31To60, b.Bucket61To90, b.BucketOver90 =
		decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	if !balance.IsPositive() {
		return b
	}

	remaining := remainingByCredit(ledger, links)
	sum := decimal.Zero
	for _, t := range ledger {
		if t.Type != model.CreditTypeCredit {
			continue
		}
		rem := remaining[t.ID]
		if !rem.IsPositive() {
			continue
		}
		sum = sum.Add(rem)
		age := today.DaysSince(t.TransactionDate)
		switch {
		case age <= 30:
			b.Bucket0To30 = b.Bucket0To30.Add(rem)
		case age <= 60:
			b.Bucket31To60 = b.Bucket31To60.Add(rem)
		case age <= 90:
			b.Bucket61To90 = b.Bucket61To90.Add(rem)
		default:
			b.BucketOver90 = b.BucketOver90.Add(rem)
		}
	}
	if sum.IsZero() {
		return b
	}
	if !sum.Equal(balance) {
		scale := balance.Div(sum)
		b.Bucket0To30 = money.Round2(b.Bucket0To30.Mul(scale))
		b.Bucket31To60 = money.Round2(b.Bucket31To60.Mul(scale))
		b.Bucket61To90 = money.Round2(b.Bucket61To90.Mul(scale))
		b.BucketOver90 = money.Round2(b.BucketOver90.Mul(scale))
	}
	return b
}

// IsOverdue reports whether the creditor has outstanding balance older than
// its credit period.
func IsOverdue(c *model.Creditor, today model.Date) bool {
	if !c.CurrentBalance.IsPositive() || c.LastTransactionDate == nil {
		return false
	}
	return today.DaysSince(*c.LastTransactionDate) > c.CreditPeriodDays
}

// View decorates a creditor with derived reporting fields.
type View struct {
	*model.Creditor
	IsOverdue bool `json:"isOverdue"`
}

// ListCreditors returns a station's creditors with the overdue flag applied.
func (e *Engine) ListCreditors(ctx context.Context, actor auth.Actor, stationID uuid.UUID, activeOnly bool) ([]View, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	creditors, err := e.store.ListCreditors(ctx, stationID, activeOnly)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list creditors")
	}
	today := model.DateOf(e.clock.Now())
	views := make([]View, 0, len(creditors))
	for _, c := range creditors {
		views = append(views, View{Creditor: c, IsOverdue: IsOverdue(c, today)})
	}
	return views, nil
}

// Ledger returns the creditor's transactions, oldest first.
func (e *Engine) Ledger(ctx context.Context, actor auth.Actor, creditorID uuid.UUID) (*model.Creditor, []*model.CreditTransaction, error) {
	c, err := e.store.Creditor(ctx, creditorID)
	if err != nil || c == nil {
		return nil, nil, apperr.Wrap(apperr.KindNotFound, err, "creditor not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, c.StationID); err != nil {
		return nil, nil, err
	}
	ledger, err := e.store.LedgerFor(ctx, creditorID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load ledger")
	}
	return c, ledger, nil
}

// Aging reports the station-wide outstanding distribution plus per-creditor
// rows, for the aging report endpoint.
type AgingReport struct {
	Total     decimal.Decimal    `json:"totalOutstanding"`
	Buckets   model.AgingBuckets `json:"buckets"`
	Overdue   int                `json:"overdueCreditors"`
	Flagged   int                `json:"flaggedCreditors"`
	Creditors []View             `json:"creditors"`
}

// Aging aggregates the cached per-creditor buckets for one station.
func (e *Engine) Aging(ctx context.Context, actor auth.Actor, stationID uuid.UUID) (*AgingReport, error) {
	views, err := e.ListCreditors(ctx, actor, stationID, true)
	if err != nil {
		return nil, err
	}
	report := &AgingReport{Total: decimal.Zero, Creditors: views}
	report.Buckets.Bucket0To30, report.Buckets.Bucket31To60 = decimal.Zero, decimal.Zero
	report.Buckets.Bucket61To90, report.Buckets.BucketOver90 = decimal.Zero, decimal.Zero
	for _, v := range views {
		report.Total = report.Total.Add(v.CurrentBalance)
		report.Buckets.Bucket0To30 = report.Buckets.Bucket0To30.Add(v.Aging0To30)
		report.Buckets.Bucket31To60 = report.Buckets.Bucket31To60.Add(v.Aging31To60)
		report.Buckets.Bucket61To90 = report.Buckets.Bucket61To90.Add(v.Aging61To90)
		report.Buckets.BucketOver90 = report.Buckets.BucketOver90.Add(v.AgingOver90)
		if v.IsOverdue {
			report.Overdue++
		}
		if v.IsFlagged {
			report.Flagged++
		}
	}
	return report, nil
}
