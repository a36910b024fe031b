package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type fakeStore struct {
	current   *model.Plan
	previous  *model.Plan
	changedAt *time.Time

	ownerID   uuid.UUID
	stations  int
	pumps     int
	nozzles   int
	employees int
	creditors int

	counters map[string]int
}

func newFakeStore(plan *model.Plan) *fakeStore {
	return &fakeStore{current: plan, ownerID: uuid.New(), counters: make(map[string]int)}
}

func (f *fakeStore) PlanForOwner(context.Context, uuid.UUID) (*model.Plan, *model.Plan, *time.Time, error) {
	return f.current, f.previous, f.changedAt, nil
}

func (f *fakeStore) OwnerOfStation(context.Context, uuid.UUID) (uuid.UUID, error) {
	return f.ownerID, nil
}

func (f *fakeStore) CountStations(context.Context, uuid.UUID) (int, error) { return f.stations, nil }
func (f *fakeStore) CountPumps(context.Context, uuid.UUID) (int, error)    { return f.pumps, nil }
func (f *fakeStore) CountNozzles(context.Context, uuid.UUID) (int, error)  { return f.nozzles, nil }
func (f *fakeStore) CountEmployees(context.Context, uuid.UUID) (int, error) {
	return f.employees, nil
}
func (f *fakeStore) CountCreditors(context.Context, uuid.UUID) (int, error) {
	return f.creditors, nil
}

func (f *fakeStore) MonthlyCount(_ context.Context, _ uuid.UUID, month string, kind Kind) (int, error) {
	return f.counters[month+"|"+string(kind)], nil
}

func (f *fakeStore) IncrementMonthly(_ context.Context, _ uuid.UUID, month string, kind Kind) error {
	f.counters[month+"|"+string(kind)]++
	return nil
}

func basicPlan() *model.Plan {
	return &model.Plan{
		ID:                   uuid.New(),
		Name:                 "basic",
		MaxStations:          2,
		MaxPumpsPerStation:   4,
		MaxNozzlesPerPump:    4,
		MaxEmployees:         5,
		MaxCreditors:         10,
		MonthlyReports:       3,
		MonthlyManualEntries: 100,
		SalesRetentionDays:   90,
		AuditRetentionDays:   30,
		CanTrackCredits:      true,
	}
}

func testEngine(store *fakeStore) *Engine {
	return NewEngine(store, clock.At("2026-03-10T12:00:00Z"))
}

func TestStationCeilingRefusesAtLimit(t *testing.T) {
	store := newFakeStore(basicPlan())
	engine := testEngine(store)

	store.stations = 1
	require.NoError(t, engine.CheckStationCeiling(context.Background(), store.ownerID))

	store.stations = 2
	err := engine.CheckStationCeiling(context.Background(), store.ownerID)
	require.Error(t, err)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
}

func TestZeroCeilingMeansUnlimited(t *testing.T) {
	plan := basicPlan()
	plan.MaxStations = 0
	store := newFakeStore(plan)
	engine := testEngine(store)

	store.stations = 5000
	require.NoError(t, engine.CheckStationCeiling(context.Background(), store.ownerID))
}

func TestNoPlanAssignedConflicts(t *testing.T) {
	store := newFakeStore(nil)
	engine := testEngine(store)

	err := engine.CheckStationCeiling(context.Background(), store.ownerID)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestDowngradeGraceKeepsOldLimits(t *testing.T) {
	small := basicPlan()
	small.MaxStations = 1
	big := basicPlan()
	big.MaxStations = 10

	store := newFakeStore(small)
	store.previous = big
	changed := clock.At("2026-03-01T00:00:00Z").T
	store.changedAt = &changed
	engine := testEngine(store)

	// 9 days after the downgrade the old ceiling of 10 still governs.
	store.stations = 5
	require.NoError(t, engine.CheckStationCeiling(context.Background(), store.ownerID))
}

func TestDowngradeGraceExpires(t *testing.T) {
	small := basicPlan()
	small.MaxStations = 1
	big := basicPlan()
	big.MaxStations = 10

	store := newFakeStore(small)
	store.previous = big
	changed := clock.At("2026-01-01T00:00:00Z").T
	store.changedAt = &changed
	engine := testEngine(store)

	store.stations = 5
	err := engine.CheckStationCeiling(context.Background(), store.ownerID)
	require.Error(t, err)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
}

func TestPumpNozzleEmployeeCreditorCeilings(t *testing.T) {
	store := newFakeStore(basicPlan())
	engine := testEngine(store)
	stationID := uuid.New()

	store.pumps = 4
	err := engine.CheckPumpCeiling(context.Background(), stationID)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))

	store.nozzles = 4
	err = engine.CheckNozzleCeiling(context.Background(), stationID, uuid.New())
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))

	store.employees = 5
	err = engine.CheckEmployeeCeiling(context.Background(), store.ownerID)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))

	store.creditors = 10
	err = engine.CheckCreditorCeiling(context.Background(), stationID)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
}

func TestConsumeMonthlyCountsWithinTheMonth(t *testing.T) {
	store := newFakeStore(basicPlan())
	engine := testEngine(store)
	stationID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, engine.ConsumeMonthly(context.Background(), stationID, KindReports))
	}
	err := engine.ConsumeMonthly(context.Background(), stationID, KindReports)
	require.Error(t, err)
	require.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))

	// The counter is per calendar month.
	require.Equal(t, 3, store.counters["2026-03|reports"])
	require.Zero(t, store.counters["2026-02|reports"])
}

func TestCheckMonthlyDoesNotIncrement(t *testing.T) {
	store := newFakeStore(basicPlan())
	engine := testEngine(store)
	stationID := uuid.New()

	require.NoError(t, engine.CheckMonthly(context.Background(), stationID, KindManualEntries))
	require.Zero(t, store.counters["2026-03|manual_entries"])

	require.NoError(t, engine.RecordMonthly(context.Background(), stationID, KindManualEntries))
	require.Equal(t, 1, store.counters["2026-03|manual_entries"])
}

func TestCheckMonthlyZeroLimitMeansUnlimited(t *testing.T) {
	plan := basicPlan()
	plan.MonthlyReports = 0
	store := newFakeStore(plan)
	engine := testEngine(store)

	store.counters["2026-03|reports"] = 100000
	require.NoError(t, engine.CheckMonthly(context.Background(), uuid.New(), KindReports))
}

func TestRetentionCutoff(t *testing.T) {
	plan := basicPlan()
	engine := testEngine(newFakeStore(plan))

	cutoff := engine.RetentionCutoff(plan, RetentionSales)
	require.NotNil(t, cutoff)
	require.Equal(t, "2025-12-10", cutoff.String())

	audit := engine.RetentionCutoff(plan, RetentionAudit)
	require.NotNil(t, audit)
	require.Equal(t, "2026-02-08", audit.String())

	// Super-admin reads pass a nil plan and see everything.
	require.Nil(t, engine.RetentionCutoff(nil, RetentionSales))

	plan.SalesRetentionDays = model.RetentionUnlimited
	require.Nil(t, engine.RetentionCutoff(plan, RetentionSales))
}

func TestRequireFeature(t *testing.T) {
	plan := basicPlan()
	engine := testEngine(newFakeStore(plan))

	require.NoError(t, engine.RequireFeature(plan, FeatureCredits))

	err := engine.RequireFeature(plan, FeatureProfitLoss)
	require.Error(t, err)
	require.Equal(t, apperr.CodeFeatureDisabled, apperr.CodeOf(err))
}
