package reports

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
)

type allowAll struct{}

func (allowAll) StationScope(context.Context, *model.User) (auth.Scope, error) {
	return auth.Scope{All: true}, nil
}
func (allowAll) AssertStation(context.Context, *model.User, uuid.UUID) error { return nil }

type fakeStore struct {
	byDay  []DayTotal
	byFuel []FuelTotal
	byPump []PumpTotal
	tanks  []*model.Tank

	pendingApprovals int
	pendingHandovers int
	credit           decimal.Decimal
	expenses         decimal.Decimal

	// windows records the ranges each aggregate query saw.
	windows []model.Date
}

func (f *fakeStore) SalesByDay(_ context.Context, _ uuid.UUID, from, to model.Date) ([]DayTotal, error) {
	f.windows = append(f.windows, from, to)
	return f.byDay, nil
}

func (f *fakeStore) SalesByFuel(_ context.Context, _ uuid.UUID, from, to model.Date) ([]FuelTotal, error) {
	f.windows = append(f.windows, from, to)
	return f.byFuel, nil
}

func (f *fakeStore) SalesByPump(_ context.Context, _ uuid.UUID, from, to model.Date) ([]PumpTotal, error) {
	f.windows = append(f.windows, from, to)
	return f.byPump, nil
}

func (f *fakeStore) PendingApprovalCount(context.Context, uuid.UUID) (int, error) {
	return f.pendingApprovals, nil
}

func (f *fakeStore) PendingHandoverCount(context.Context, uuid.UUID) (int, error) {
	return f.pendingHandovers, nil
}

func (f *fakeStore) OutstandingCredit(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return f.credit, nil
}

func (f *fakeStore) ExpenseTotal(context.Context, uuid.UUID, model.Date, model.Date) (decimal.Decimal, error) {
	return f.expenses, nil
}

func (f *fakeStore) ListTanks(context.Context, uuid.UUID) ([]*model.Tank, error) {
	return f.tanks, nil
}

func (f *fakeStore) AuditRows(context.Context, uuid.UUID, model.Date, model.Date, int) ([]*model.AuditLog, error) {
	return nil, nil
}

type fakePlans struct {
	plan       *model.Plan
	cutoff     *model.Date
	consumeErr error
	featureErr error
	consumed   int
}

func (f *fakePlans) PlanForStation(context.Context, uuid.UUID) (*model.Plan, error) {
	return f.plan, nil
}

func (f *fakePlans) ConsumeMonthly(context.Context, uuid.UUID, quota.Kind) error {
	if f.consumeErr != nil {
		return f.consumeErr
	}
	f.consumed++
	return nil
}

func (f *fakePlans) RetentionCutoff(*model.Plan, quota.RetentionKind) *model.Date {
	return f.cutoff
}

func (f *fakePlans) RequireFeature(*model.Plan, quota.Feature) error { return f.featureErr }

func testFixture() (*fakeStore, *fakePlans, *Engine) {
	store := &fakeStore{credit: decimal.Zero, expenses: decimal.Zero}
	plans := &fakePlans{plan: &model.Plan{Name: "pro"}}
	engine := NewEngine(store, allowAll{}, plans, clock.At("2026-03-10T09:00:00Z"))
	return store, plans, engine
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleOwner, IsActive: true}}
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestSalesSumsDailyTotals(t *testing.T) {
	store, plans, engine := testFixture()
	store.byDay = []DayTotal{
		{Date: date("2026-03-08"), Litres: money.D("100"), Amount: money.D("10000")},
		{Date: date("2026-03-09"), Litres: money.D("50"), Amount: money.D("5000")},
	}

	r, err := engine.Sales(context.Background(), testActor(), uuid.New(), date("2026-03-01"), date("2026-03-10"))
	require.NoError(t, err)
	require.True(t, r.TotalLitres.Equal(money.D("150")))
	require.True(t, r.TotalAmount.Equal(money.D("15000")))
	require.False(t, r.Truncated)
	require.Equal(t, 1, plans.consumed)
}

func TestSalesClampsToRetentionCutoff(t *testing.T) {
	store, plans, engine := testFixture()
	cutoff := date("2026-03-05")
	plans.cutoff = &cutoff

	r, err := engine.Sales(context.Background(), testActor(), uuid.New(), date("2026-01-01"), date("2026-03-10"))
	require.NoError(t, err)
	require.True(t, r.Truncated)
	require.True(t, r.From.Equal(cutoff))
	require.True(t, store.windows[0].Equal(cutoff), "query must start at the cutoff")
}

func TestSalesSuperAdminBypassesRetention(t *testing.T) {
	_, plans, engine := testFixture()
	cutoff := date("2026-03-05")
	plans.cutoff = &cutoff
	admin := auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleSuperAdmin, IsActive: true}}

	r, err := engine.Sales(context.Background(), admin, uuid.New(), date("2026-01-01"), date("2026-03-10"))
	require.NoError(t, err)
	require.False(t, r.Truncated)
	require.True(t, r.From.Equal(date("2026-01-01")))
}

func TestPumpsRanksByWindow(t *testing.T) {
	store, plans, engine := testFixture()
	store.byPump = []PumpTotal{
		{PumpID: uuid.New(), PumpName: "P1", Readings: 12, Litres: money.D("300"), Amount: money.D("30000")},
		{PumpID: uuid.New(), PumpName: "P2", Readings: 4, Litres: money.D("80"), Amount: money.D("8000")},
	}

	r, err := engine.Pumps(context.Background(), testActor(), uuid.New(), date("2026-03-01"), date("2026-03-10"))
	require.NoError(t, err)
	require.Len(t, r.ByPump, 2)
	require.Equal(t, "P1", r.ByPump[0].PumpName)
	require.Equal(t, 1, plans.consumed, "each pump report consumes a monthly unit")
}

func TestPumpsRejectsInvertedRange(t *testing.T) {
	_, _, engine := testFixture()
	_, err := engine.Pumps(context.Background(), testActor(), uuid.New(), date("2026-03-10"), date("2026-03-01"))
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPumpsHonorsReportQuota(t *testing.T) {
	_, plans, engine := testFixture()
	plans.consumeErr = apperr.New(apperr.KindQuotaExceeded, "monthly report limit reached")

	_, err := engine.Pumps(context.Background(), testActor(), uuid.New(), date("2026-03-01"), date("2026-03-10"))
	require.Error(t, err)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
}

func TestProfitRequiresPlanFeature(t *testing.T) {
	_, plans, engine := testFixture()
	plans.featureErr = apperr.New(apperr.KindForbidden, "plan does not include profit reports")

	_, err := engine.Profit(context.Background(), testActor(), uuid.New(), date("2026-03-01"), date("2026-03-10"))
	require.Error(t, err)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestProfitDerivesMargins(t *testing.T) {
	store, _, engine := testFixture()
	store.byFuel = []FuelTotal{
		{FuelType: model.FuelPetrol, Litres: money.D("100"), Amount: money.D("10000"), Cost: money.D("9000")},
		{FuelType: model.FuelDiesel, Litres: money.D("50"), Amount: money.D("4500"), Cost: money.D("4000")},
	}
	store.expenses = money.D("600")

	p, err := engine.Profit(context.Background(), testActor(), uuid.New(), date("2026-03-01"), date("2026-03-10"))
	require.NoError(t, err)
	require.True(t, p.Revenue.Equal(money.D("14500")))
	require.True(t, p.FuelCost.Equal(money.D("13000")))
	require.True(t, p.GrossProfit.Equal(money.D("1500")))
	require.True(t, p.NetProfit.Equal(money.D("900")))
}

func TestAuditTrailForbidsEmployees(t *testing.T) {
	_, _, engine := testFixture()
	emp := auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleEmployee, IsActive: true}}

	_, err := engine.AuditTrail(context.Background(), emp, uuid.New(), date("2026-03-01"), date("2026-03-10"), 50)
	require.Error(t, err)
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
