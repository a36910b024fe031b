// Package expenses records station operating costs, gated by the plan's
// expense-tracking flag.
package expenses

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
)

// Store is the persistence slice the expense engine needs.
type Store interface {
	Expense(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	ListExpenses(ctx context.Context, stationID uuid.UUID, month string) ([]*model.Expense, error)
	CreateExpenseTx(ctx context.Context, x *model.Expense, entry *model.AuditLog) error
	DeleteExpenseTx(ctx context.Context, id uuid.UUID, entry *model.AuditLog) error
}

// Plans is the quota surface the engine consults.
type Plans interface {
	PlanForStation(ctx context.Context, stationID uuid.UUID) (*model.Plan, error)
	RequireFeature(plan *model.Plan, f quota.Feature) error
}

type Engine struct {
	store Store
	authz auth.Authorizer
	plans Plans
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, plans Plans, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, plans: plans, clock: clk}
}

// CreateInput is one expense entry.
type CreateInput struct {
	StationID     uuid.UUID
	Category      string
	Description   string
	Amount        decimal.Decimal
	Date          model.Date
	ReceiptNumber string
	PaymentMethod string
}

// Create records an expense. ExpenseMonth derives from the date at write
// time.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.Expense, error) {
	if in.Category == "" {
		return nil, apperr.New(apperr.KindValidation, "category is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if in.Date.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "date is required")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}
	plan, err := e.plans.PlanForStation(ctx, in.StationID)
	if err != nil {
		return nil, err
	}
	if err := e.plans.RequireFeature(plan, quota.FeatureExpenses); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if in.Date.After(model.DateOf(now)) {
		return nil, apperr.Coded(apperr.KindValidation, apperr.CodeFutureDate, "expense date is in the future")
	}

	x := &model.Expense{
		ID:            uuid.New(),
		StationID:     in.StationID,
		Category:      in.Category,
		Description:   in.Description,
		Amount:        money.Round2(in.Amount),
		Date:          in.Date,
		ExpenseMonth:  in.Date.MonthKey(),
		ReceiptNumber: in.ReceiptNumber,
		PaymentMethod: in.PaymentMethod,
		EnteredBy:     actor.User.ID,
		CreatedAt:     now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "expense_recorded",
		EntityType: "expense", EntityID: &x.ID,
		NewValues: map[string]any{"category": in.Category, "amount": x.Amount.String(), "date": in.Date.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreateExpenseTx(ctx, x, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create expense")
	}
	return x, nil
}

// Delete removes an expense entry.
func (e *Engine) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	x, err := e.store.Expense(ctx, id)
	if err != nil || x == nil {
		return apperr.Wrap(apperr.KindNotFound, err, "expense not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, x.StationID); err != nil {
		return err
	}

	now := e.clock.Now()
	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &x.StationID, Action: "expense_deleted",
		EntityType: "expense", EntityID: &id,
		OldValues: map[string]any{"category": x.Category, "amount": x.Amount.String()},
		Category:  model.CategoryFinance, Severity: model.SeverityWarning, Success: true,
	}.Build(now)

	if err := e.store.DeleteExpenseTx(ctx, id, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "delete expense")
	}
	return nil
}

// MonthSummary is the per-category rollup of one month.
type MonthSummary struct {
	Month      string                     `json:"month"`
	Total      decimal.Decimal            `json:"total"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	Count      int                        `json:"count"`
}

// List returns a station's expenses for one month ("" means all).
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID, month string) ([]*model.Expense, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListExpenses(ctx, stationID, month)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list expenses")
	}
	return rows, nil
}

// Summarize rolls one month up by category.
func (e *Engine) Summarize(ctx context.Context, actor auth.Actor, stationID uuid.UUID, month string) (*MonthSummary, error) {
	rows, err := e.List(ctx, actor, stationID, month)
	if err != nil {
		return nil, err
	}
	s := &MonthSummary{Month: month, Total: decimal.Zero, ByCategory: make(map[string]decimal.Decimal)}
	for _, x := range rows {
		s.Count++
		s.Total = s.Total.Add(x.Amount)
		cur, ok := s.ByCategory[x.Category]
		if !ok {
			cur = decimal.Zero
		}
		s.ByCategory[x.Category] = cur.Add(x.Amount)
	}
	return s, nil
}
