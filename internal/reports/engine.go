// Package reports serves the read-side aggregations: the station dashboard,
// sales reports, and profit/loss, honoring plan retention windows and the
// monthly report quota.
package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/tank"
)

// DayTotal is one day's sales rollup.
type DayTotal struct {
	Date   model.Date      `json:"date"`
	Litres decimal.Decimal `json:"litres"`
	Amount decimal.Decimal `json:"amount"`
}

// FuelTotal is one fuel's rollup over a window.
type FuelTotal struct {
	FuelType model.FuelType  `json:"fuelType"`
	Litres   decimal.Decimal `json:"litres"`
	Amount   decimal.Decimal `json:"amount"`
	Cost     decimal.Decimal `json:"cost"`
}

// PumpTotal is one pump's rollup over a window.
type PumpTotal struct {
	PumpID   uuid.UUID       `json:"pumpId"`
	PumpName string          `json:"pumpName"`
	Readings int             `json:"readings"`
	Litres   decimal.Decimal `json:"litres"`
	Amount   decimal.Decimal `json:"amount"`
}

// Store is the aggregate-query slice the reports engine needs. The store
// computes sums in SQL; the engine composes them.
type Store interface {
	SalesByDay(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]DayTotal, error)
	SalesByFuel(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]FuelTotal, error)
	SalesByPump(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]PumpTotal, error)
	PendingApprovalCount(ctx context.Context, stationID uuid.UUID) (int, error)
	PendingHandoverCount(ctx context.Context, stationID uuid.UUID) (int, error)
	OutstandingCredit(ctx context.Context, stationID uuid.UUID) (decimal.Decimal, error)
	ExpenseTotal(ctx context.Context, stationID uuid.UUID, from, to model.Date) (decimal.Decimal, error)
	ListTanks(ctx context.Context, stationID uuid.UUID) ([]*model.Tank, error)
	AuditRows(ctx context.Context, stationID uuid.UUID, from, to model.Date, limit int) ([]*model.AuditLog, error)
}

// Plans is the slice of the quota engine the reports engine uses.
type Plans interface {
	PlanForStation(ctx context.Context, stationID uuid.UUID) (*model.Plan, error)
	ConsumeMonthly(ctx context.Context, stationID uuid.UUID, kind quota.Kind) error
	RetentionCutoff(plan *model.Plan, kind quota.RetentionKind) *model.Date
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

// Dashboard is the station landing view.
type Dashboard struct {
	Date             model.Date      `json:"date"`
	TodayLitres      decimal.Decimal `json:"todayLitres"`
	TodayAmount      decimal.Decimal `json:"todayAmount"`
	ByFuel           []FuelTotal     `json:"byFuel"`
	Tanks            []tank.View     `json:"tanks"`
	PendingApprovals int             `json:"pendingApprovals"`
	PendingHandovers int             `json:"pendingHandovers"`
	CreditOutstanding decimal.Decimal `json:"creditOutstanding"`
}

// GetDashboard assembles today's station snapshot.
func (e *Engine) GetDashboard(ctx context.Context, actor auth.Actor, stationID uuid.UUID) (*Dashboard, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}

	today := model.DateOf(e.clock.Now())
	d := &Dashboard{Date: today, TodayLitres: decimal.Zero, TodayAmount: decimal.Zero, CreditOutstanding: decimal.Zero}

	byFuel, err := e.store.SalesByFuel(ctx, stationID, today, today)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load today's sales")
	}
	d.ByFuel = byFuel
	for _, f := range byFuel {
		d.TodayLitres = d.TodayLitres.Add(f.Litres)
		d.TodayAmount = d.TodayAmount.Add(f.Amount)
	}

	tanks, err := e.store.ListTanks(ctx, stationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load tanks")
	}
	for _, t := range tanks {
		d.Tanks = append(d.Tanks, tank.View{Tank: t, Status: tank.Status(t), SinceLastRefill: tank.SinceLastRefill(t)})
	}

	if d.PendingApprovals, err = e.store.PendingApprovalCount(ctx, stationID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "count pending approvals")
	}
	if d.PendingHandovers, err = e.store.PendingHandoverCount(ctx, stationID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "count pending handovers")
	}
	if d.CreditOutstanding, err = e.store.OutstandingCredit(ctx, stationID); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "sum outstanding credit")
	}
	return d, nil
}

// SalesReport is a windowed sales aggregation.
type SalesReport struct {
	From        model.Date      `json:"from"`
	To          model.Date      `json:"to"`
	TotalLitres decimal.Decimal `json:"totalLitres"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ByDay       []DayTotal      `json:"byDay"`
	ByFuel      []FuelTotal     `json:"byFuel"`
	// Truncated is set when the plan's retention window clipped the start
	// of the requested range.
	Truncated bool `json:"truncated,omitempty"`
}

// clampToRetention moves from forward to the retention cutoff when the plan
// limits history. Super admins see everything.
func (e *Engine) clampToRetention(actor auth.Actor, plan *model.Plan, kind quota.RetentionKind, from model.Date) (model.Date, bool) {
	if actor.User.Role == model.RoleSuperAdmin {
		return from, false
	}
	cutoff := e.plans.RetentionCutoff(plan, kind)
	if cutoff == nil || !from.Before(*cutoff) {
		return from, false
	}
	return *cutoff, true
}

// Sales builds a sales report. Each call consumes one monthly report unit.
func (e *Engine) Sales(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) (*SalesReport, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	plan, err := e.plans.PlanForStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if err := e.plans.ConsumeMonthly(ctx, stationID, quota.KindReports); err != nil {
		return nil, err
	}

	clamped, truncated := e.clampToRetention(actor, plan, quota.RetentionSales, from)

	r := &SalesReport{From: clamped, To: to, TotalLitres: decimal.Zero, TotalAmount: decimal.Zero, Truncated: truncated}
	if r.ByDay, err = e.store.SalesByDay(ctx, stationID, clamped, to); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load daily sales")
	}
	if r.ByFuel, err = e.store.SalesByFuel(ctx, stationID, clamped, to); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load fuel sales")
	}
	for _, d := range r.ByDay {
		r.TotalLitres = r.TotalLitres.Add(d.Litres)
		r.TotalAmount = r.TotalAmount.Add(d.Amount)
	}
	return r, nil
}

// PumpReport ranks a station's pumps by sales over a window.
type PumpReport struct {
	From      model.Date  `json:"from"`
	To        model.Date  `json:"to"`
	ByPump    []PumpTotal `json:"byPump"`
	Truncated bool        `json:"truncated,omitempty"`
}

// Pumps builds a per-pump performance report. Each call consumes one
// monthly report unit.
func (e *Engine) Pumps(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) (*PumpReport, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	plan, err := e.plans.PlanForStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if err := e.plans.ConsumeMonthly(ctx, stationID, quota.KindReports); err != nil {
		return nil, err
	}

	clamped, truncated := e.clampToRetention(actor, plan, quota.RetentionSales, from)

	r := &PumpReport{From: clamped, To: to, Truncated: truncated}
	if r.ByPump, err = e.store.SalesByPump(ctx, stationID, clamped, to); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load pump sales")
	}
	return r, nil
}

// ProfitLoss is revenue minus fuel cost minus expenses over a window.
type ProfitLoss struct {
	From        model.Date      `json:"from"`
	To          model.Date      `json:"to"`
	Revenue     decimal.Decimal `json:"revenue"`
	FuelCost    decimal.Decimal `json:"fuelCost"`
	Expenses    decimal.Decimal `json:"expenses"`
	GrossProfit decimal.Decimal `json:"grossProfit"`
	NetProfit   decimal.Decimal `json:"netProfit"`
	ByFuel      []FuelTotal     `json:"byFuel"`
	Truncated   bool            `json:"truncated,omitempty"`
}

// Profit builds a profit/loss report; plan-gated.
func (e *Engine) Profit(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) (*ProfitLoss, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	plan, err := e.plans.PlanForStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if err := e.plans.RequireFeature(plan, quota.FeatureProfitLoss); err != nil {
		return nil, err
	}
	if err := e.plans.ConsumeMonthly(ctx, stationID, quota.KindReports); err != nil {
		return nil, err
	}

	clamped, truncated := e.clampToRetention(actor, plan, quota.RetentionProfit, from)

	byFuel, err := e.store.SalesByFuel(ctx, stationID, clamped, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load fuel sales")
	}
	expenses, err := e.store.ExpenseTotal(ctx, stationID, clamped, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "sum expenses")
	}

	p := &ProfitLoss{From: clamped, To: to, Expenses: expenses, ByFuel: byFuel, Truncated: truncated}
	p.Revenue, p.FuelCost = decimal.Zero, decimal.Zero
	for _, f := range byFuel {
		p.Revenue = p.Revenue.Add(f.Amount)
		p.FuelCost = p.FuelCost.Add(f.Cost)
	}
	p.GrossProfit = p.Revenue.Sub(p.FuelCost)
	p.NetProfit = p.GrossProfit.Sub(p.Expenses)
	return p, nil
}

// AuditTrail returns the station's audit rows within the plan's audit
// retention window. Owners and managers only.
func (e *Engine) AuditTrail(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date, limit int) ([]*model.AuditLog, error) {
	if actor.User.Role == model.RoleEmployee {
		return nil, apperr.New(apperr.KindForbidden, "audit trail requires manager access")
	}
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, apperr.New(apperr.KindValidation, "date range is inverted")
	}
	plan, err := e.plans.PlanForStation(ctx, stationID)
	if err != nil {
		return nil, err
	}
	clamped, _ := e.clampToRetention(actor, plan, quota.RetentionAudit, from)

	rows, err := e.store.AuditRows(ctx, stationID, clamped, to, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load audit rows")
	}
	return rows, nil
}
