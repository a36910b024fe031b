// Package quota enforces plan resource ceilings, monthly counters,
// retention windows, and feature flags at write and read time.
package quota

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// Kind is a monthly counter bucket.
type Kind string

const (
	KindExports       Kind = "exports"
	KindReports       Kind = "reports"
	KindManualEntries Kind = "manual_entries"
)

// RetentionKind selects which retention window applies to a read path.
type RetentionKind string

const (
	RetentionSales        RetentionKind = "sales"
	RetentionProfit       RetentionKind = "profit"
	RetentionAnalytics    RetentionKind = "analytics"
	RetentionAudit        RetentionKind = "audit"
	RetentionTransactions RetentionKind = "transactions"
)

// Feature is a plan boolean flag.
type Feature string

const (
	FeatureExport     Feature = "export"
	FeatureExpenses   Feature = "expenses"
	FeatureCredits    Feature = "credits"
	FeatureProfitLoss Feature = "profit_loss"
)

// DowngradeGraceDays is the window after a plan downgrade during which the
// previous plan's limits still apply.
const DowngradeGraceDays = 30

// Store is the persistence slice the engine needs.
type Store interface {
	// PlanForOwner returns the owner's current plan, the previous plan if
	// the owner was downgraded, and when the change happened.
	PlanForOwner(ctx context.Context, ownerID uuid.UUID) (current *model.Plan, previous *model.Plan, changedAt *time.Time, err error)
	// OwnerOfStation resolves a station to its owning tenant.
	OwnerOfStation(ctx context.Context, stationID uuid.UUID) (uuid.UUID, error)

	CountStations(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountPumps(ctx context.Context, stationID uuid.UUID) (int, error)
	CountNozzles(ctx context.Context, pumpID uuid.UUID) (int, error)
	CountEmployees(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountCreditors(ctx context.Context, stationID uuid.UUID) (int, error)

	// MonthlyCount returns the counter for (owner, month, kind).
	MonthlyCount(ctx context.Context, ownerID uuid.UUID, month string, kind Kind) (int, error)
	// IncrementMonthly bumps the counter by one, creating it at 1.
	IncrementMonthly(ctx context.Context, ownerID uuid.UUID, month string, kind Kind) error
}

// Engine gates writes and reads against the owner's plan.
type Engine struct {
	store Store
	clock clock.Clock
}

func NewEngine(store Store, clk clock.Clock) *Engine {
	return &Engine{store: store, clock: clk}
}

// effectivePlan applies the downgrade grace window: within 30 days of a
// downgrade the more generous of the two plans' limits apply, field by
// field via the max helpers below.
func (e *Engine) effectivePlan(ctx context.Context, ownerID uuid.UUID) (*model.Plan, *model.Plan, error) {
	current, previous, changedAt, err := e.store.PlanForOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load owner plan")
	}
	if current == nil {
		return nil, nil, apperr.New(apperr.KindConflict, "owner has no plan assigned")
	}
	if previous == nil || changedAt == nil {
		return current, nil, nil
	}
	if e.clock.Now().Sub(*changedAt) > DowngradeGraceDays*24*time.Hour {
		return current, nil, nil
	}
	return current, previous, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ceiling returns the effective limit for a resource given the optional
// grace plan.
func ceiling(pick func(*model.Plan) int, current, grace *model.Plan) int {
	limit := pick(current)
	if grace != nil {
		limit = maxInt(limit, pick(grace))
	}
	return limit
}

func (e *Engine) checkCeiling(current, limit int, resource string) error {
	if limit > 0 && current >= limit {
		return apperr.Newf(apperr.KindQuotaExceeded, "plan limit of %d %s reached", limit, resource)
	}
	return nil
}

// PlanForStation resolves the effective plan governing a station.
func (e *Engine) PlanForStation(ctx context.Context, stationID uuid.UUID) (*model.Plan, error) {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	plan, _, err := e.effectivePlan(ctx, ownerID)
	return plan, err
}

// CheckStationCeiling gates station creation.
func (e *Engine) CheckStationCeiling(ctx context.Context, ownerID uuid.UUID) error {
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := e.store.CountStations(ctx, ownerID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "count stations")
	}
	return e.checkCeiling(n, ceiling(func(p *model.Plan) int { return p.MaxStations }, plan, grace), "stations")
}

// CheckPumpCeiling gates pump creation within a station.
func (e *Engine) CheckPumpCeiling(ctx context.Context, stationID uuid.UUID) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := e.store.CountPumps(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "count pumps")
	}
	return e.checkCeiling(n, ceiling(func(p *model.Plan) int { return p.MaxPumpsPerStation }, plan, grace), "pumps per station")
}

// CheckNozzleCeiling gates nozzle creation within a pump.
func (e *Engine) CheckNozzleCeiling(ctx context.Context, stationID, pumpID uuid.UUID) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := e.store.CountNozzles(ctx, pumpID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "count nozzles")
	}
	return e.checkCeiling(n, ceiling(func(p *model.Plan) int { return p.MaxNozzlesPerPump }, plan, grace), "nozzles per pump")
}

// CheckEmployeeCeiling gates user creation under an owner.
func (e *Engine) CheckEmployeeCeiling(ctx context.Context, ownerID uuid.UUID) error {
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := e.store.CountEmployees(ctx, ownerID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "count employees")
	}
	return e.checkCeiling(n, ceiling(func(p *model.Plan) int { return p.MaxEmployees }, plan, grace), "employees")
}

// CheckCreditorCeiling gates creditor creation within a station.
func (e *Engine) CheckCreditorCeiling(ctx context.Context, stationID uuid.UUID) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	n, err := e.store.CountCreditors(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "count creditors")
	}
	return e.checkCeiling(n, ceiling(func(p *model.Plan) int { return p.MaxCreditors }, plan, grace), "creditors")
}

func monthlyLimit(kind Kind, p *model.Plan) int {
	switch kind {
	case KindExports:
		return p.MonthlyExports
	case KindReports:
		return p.MonthlyReports
	case KindManualEntries:
		return p.MonthlyManualEntries
	}
	return 0
}

// CheckMonthly refuses when one more entry of kind would exceed the
// owner's monthly limit. It does not increment; callers that need the
// refusal before a write pair it with RecordMonthly after the write.
func (e *Engine) CheckMonthly(ctx context.Context, stationID uuid.UUID, kind Kind) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	limit := monthlyLimit(kind, plan)
	if grace != nil {
		limit = maxInt(limit, monthlyLimit(kind, grace))
	}
	if limit <= 0 {
		return nil
	}
	month := model.DateOf(e.clock.Now()).MonthKey()
	n, err := e.store.MonthlyCount(ctx, ownerID, month, kind)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "read monthly counter")
	}
	if n >= limit {
		return apperr.Newf(apperr.KindQuotaExceeded, "monthly %s limit of %d reached", kind, limit)
	}
	return nil
}

// RecordMonthly increments the counter after a gated write succeeded.
func (e *Engine) RecordMonthly(ctx context.Context, stationID uuid.UUID, kind Kind) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	month := model.DateOf(e.clock.Now()).MonthKey()
	if err := e.store.IncrementMonthly(ctx, ownerID, month, kind); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "increment monthly counter")
	}
	return nil
}

// ConsumeMonthly checks and increments a monthly counter for the owner of
// the given station. It is called after the gated write succeeds; the
// check-and-increment races are acceptable at plan granularity.
func (e *Engine) ConsumeMonthly(ctx context.Context, stationID uuid.UUID, kind Kind) error {
	ownerID, err := e.store.OwnerOfStation(ctx, stationID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "resolve station owner")
	}
	return e.ConsumeMonthlyForOwner(ctx, ownerID, kind)
}

// ConsumeMonthlyForOwner is ConsumeMonthly keyed directly by owner.
func (e *Engine) ConsumeMonthlyForOwner(ctx context.Context, ownerID uuid.UUID, kind Kind) error {
	plan, grace, err := e.effectivePlan(ctx, ownerID)
	if err != nil {
		return err
	}
	limit := monthlyLimit(kind, plan)
	if grace != nil {
		limit = maxInt(limit, monthlyLimit(kind, grace))
	}
	month := model.DateOf(e.clock.Now()).MonthKey()
	if limit > 0 {
		n, err := e.store.MonthlyCount(ctx, ownerID, month, kind)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "read monthly counter")
		}
		if n >= limit {
			return apperr.Newf(apperr.KindQuotaExceeded, "monthly %s limit of %d reached", kind, limit)
		}
	}
	if err := e.store.IncrementMonthly(ctx, ownerID, month, kind); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "increment monthly counter")
	}
	return nil
}

func retentionDays(kind RetentionKind, p *model.Plan) int {
	switch kind {
	case RetentionSales:
		return p.SalesRetentionDays
	case RetentionProfit:
		return p.ProfitRetentionDays
	case RetentionAnalytics:
		return p.AnalyticsRetentionDays
	case RetentionAudit:
		return p.AuditRetentionDays
	case RetentionTransactions:
		return p.TransactionRetentionDays
	}
	return model.RetentionUnlimited
}

// RetentionCutoff returns the earliest visible date for a read path, or nil
// when the window is unlimited. Super-admin callers pass a nil plan and see
// everything.
func (e *Engine) RetentionCutoff(plan *model.Plan, kind RetentionKind) *model.Date {
	if plan == nil {
		return nil
	}
	days := retentionDays(kind, plan)
	if days == model.RetentionUnlimited || days == 0 {
		return nil
	}
	cutoff := model.DateOf(e.clock.Now()).AddDays(-days)
	return &cutoff
}

// RequireFeature fails with QUOTA_EXCEEDED (FEATURE_DISABLED code) when the
// plan does not include the feature.
func (e *Engine) RequireFeature(plan *model.Plan, f Feature) error {
	enabled := false
	switch f {
	case FeatureExport:
		enabled = plan.CanExport
	case FeatureExpenses:
		enabled = plan.CanTrackExpenses
	case FeatureCredits:
		enabled = plan.CanTrackCredits
	case FeatureProfitLoss:
		enabled = plan.CanViewProfitLoss
	}
	if !enabled {
		return apperr.Codedf(apperr.KindQuotaExceeded, apperr.CodeFeatureDisabled,
			"plan does not include %s", f)
	}
	return nil
}
