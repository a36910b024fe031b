package tank

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
)

type allowAll struct{}

func (allowAll) StationScope(context.Context, *model.User) (auth.Scope, error) {
	return auth.Scope{All: true}, nil
}
func (allowAll) AssertStation(context.Context, *model.User, uuid.UUID) error { return nil }

type fakeStore struct {
	tanks   map[uuid.UUID]*model.Tank
	refills map[uuid.UUID]*model.TankRefill
	audits  []*model.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tanks:   make(map[uuid.UUID]*model.Tank),
		refills: make(map[uuid.UUID]*model.TankRefill),
	}
}

func (f *fakeStore) Tank(_ context.Context, id uuid.UUID) (*model.Tank, error) {
	return f.tanks[id], nil
}

func (f *fakeStore) ListTanks(_ context.Context, stationID uuid.UUID) ([]*model.Tank, error) {
	var out []*model.Tank
	for _, t := range f.tanks {
		if t.StationID == stationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) Refill(_ context.Context, id uuid.UUID) (*model.TankRefill, error) {
	return f.refills[id], nil
}

func (f *fakeStore) ListRefills(_ context.Context, tankID uuid.UUID, limit int) ([]*model.TankRefill, error) {
	var out []*model.TankRefill
	for _, r := range f.refills {
		if r.TankID == tankID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTankTx(_ context.Context, t *model.Tank, entry *model.AuditLog) error {
	f.tanks[t.ID] = t
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) RecordRefillTx(_ context.Context, refill *model.TankRefill, t *model.Tank, entry *model.AuditLog) error {
	f.refills[refill.ID] = refill
	f.tanks[t.ID] = t
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) DeleteRefillTx(_ context.Context, refillID uuid.UUID, t *model.Tank, entry *model.AuditLog) error {
	delete(f.refills, refillID)
	f.tanks[t.ID] = t
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) UpdateTankTx(_ context.Context, t *model.Tank, entry *model.AuditLog) error {
	f.tanks[t.ID] = t
	f.audits = append(f.audits, entry)
	return nil
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleManager, IsActive: true}}
}

func testEngine() (*fakeStore, *Engine) {
	store := newFakeStore()
	return store, NewEngine(store, allowAll{}, clock.At("2026-03-10T09:00:00Z"))
}

func createTank(t *testing.T, engine *Engine, level string) *model.Tank {
	t.Helper()
	tank, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    uuid.New(),
		Name:         "Tank 1",
		FuelType:     model.FuelPetrol,
		Capacity:     money.D("10000"),
		InitialLevel: money.D(level),
	})
	require.NoError(t, err)
	return tank
}

func TestCreateDefaultsToWarningMode(t *testing.T) {
	_, engine := testEngine()
	tank := createTank(t, engine, "5000")
	require.Equal(t, model.TrackingWarning, tank.TrackingMode)
	require.True(t, tank.CurrentLevel.Equal(money.D("5000")))
}

func TestCreateRejectsZeroCapacity(t *testing.T) {
	_, engine := testEngine()
	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID: uuid.New(),
		FuelType:  model.FuelDiesel,
		Capacity:  decimal.Zero,
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRecordRefillMovesLevel(t *testing.T) {
	store, engine := testEngine()
	tank := createTank(t, engine, "2000")

	cost := money.D("95.50")
	refill, err := engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:       tank.ID,
		Litres:       money.D("6000"),
		RefillDate:   model.MustDate("2026-03-10"),
		CostPerLitre: &cost,
		Supplier:     "IOCL",
	})
	require.NoError(t, err)
	require.NotNil(t, refill.TotalCost)
	require.True(t, refill.TotalCost.Equal(money.D("573000")))
	require.False(t, refill.Backdated)

	got := store.tanks[tank.ID]
	require.True(t, got.CurrentLevel.Equal(money.D("8000")))
	require.NotNil(t, got.LevelAfterLastRefill)
	require.True(t, got.LevelAfterLastRefill.Equal(money.D("8000")))
}

func TestRecordRefillMarksBackdated(t *testing.T) {
	_, engine := testEngine()
	tank := createTank(t, engine, "2000")

	refill, err := engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:     tank.ID,
		Litres:     money.D("1000"),
		RefillDate: model.MustDate("2026-03-08"),
	})
	require.NoError(t, err)
	require.True(t, refill.Backdated)
}

func TestRecordRefillRejectsFutureDate(t *testing.T) {
	_, engine := testEngine()
	tank := createTank(t, engine, "2000")

	_, err := engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:     tank.ID,
		Litres:     money.D("1000"),
		RefillDate: model.MustDate("2026-03-11"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeFutureDate, apperr.CodeOf(err))
}

func TestNegativeLitresRequireCorrectionEntry(t *testing.T) {
	store, engine := testEngine()
	tank := createTank(t, engine, "2000")

	_, err := engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:     tank.ID,
		Litres:     money.D("-500"),
		RefillDate: model.MustDate("2026-03-10"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:     tank.ID,
		Litres:     money.D("-500"),
		RefillDate: model.MustDate("2026-03-10"),
		EntryType:  model.RefillCorrection,
	})
	require.NoError(t, err)
	require.True(t, store.tanks[tank.ID].CurrentLevel.Equal(money.D("1500")))
}

func TestDeleteRefillReversesLevel(t *testing.T) {
	store, engine := testEngine()
	tank := createTank(t, engine, "2000")

	refill, err := engine.RecordRefill(context.Background(), testActor(), RefillInput{
		TankID:     tank.ID,
		Litres:     money.D("3000"),
		RefillDate: model.MustDate("2026-03-10"),
	})
	require.NoError(t, err)
	require.True(t, store.tanks[tank.ID].CurrentLevel.Equal(money.D("5000")))

	require.NoError(t, engine.DeleteRefill(context.Background(), testActor(), refill.ID))
	require.True(t, store.tanks[tank.ID].CurrentLevel.Equal(money.D("2000")))
	require.Empty(t, store.refills)
}

func TestCalibrateSetsLevelFromDip(t *testing.T) {
	store, engine := testEngine()
	tank := createTank(t, engine, "4000")

	got, err := engine.Calibrate(context.Background(), testActor(), tank.ID, money.D("3750.5"), model.MustDate("2026-03-10"))
	require.NoError(t, err)
	require.True(t, got.CurrentLevel.Equal(money.D("3750.5")))
	require.NotNil(t, got.LastDipReading)
	require.True(t, store.tanks[tank.ID].CurrentLevel.Equal(money.D("3750.5")))
}

func TestStatusClassification(t *testing.T) {
	tank := &model.Tank{Capacity: money.D("10000")}

	cases := []struct {
		level string
		want  model.TankStatus
	}{
		{"-5", model.TankNegative},
		{"0", model.TankEmpty},
		{"900", model.TankCritical}, // <= 10% default
		{"1500", model.TankLow},     // <= 20% default
		{"5000", model.TankNormal},
		{"10500", model.TankOverflow},
	}
	for _, tc := range cases {
		tank.CurrentLevel = money.D(tc.level)
		require.Equal(t, tc.want, Status(tank), "level %s", tc.level)
	}
}

func TestStatusHonorsExplicitThresholds(t *testing.T) {
	low := money.D("3000")
	crit := money.D("1000")
	tank := &model.Tank{
		Capacity:            money.D("10000"),
		LowLevelLitres:      &low,
		CriticalLevelLitres: &crit,
		CurrentLevel:        money.D("2500"),
	}
	require.Equal(t, model.TankLow, Status(tank))
}

func TestCanDispenseWarnsBeforeBlocking(t *testing.T) {
	tank := &model.Tank{
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("1200"),
		TrackingMode: model.TrackingWarning,
	}

	warnings, err := CanDispense(tank, money.D("300"))
	require.NoError(t, err)
	require.Equal(t, []string{WarnTankCritical}, warnings)

	// Warning mode lets the level go negative with a warning.
	warnings, err = CanDispense(tank, money.D("2000"))
	require.NoError(t, err)
	require.Equal(t, []string{WarnTankNegative}, warnings)
}

func TestCanDispenseStrictBlocksOverdraw(t *testing.T) {
	tank := &model.Tank{
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("100"),
		TrackingMode: model.TrackingStrict,
	}

	_, err := CanDispense(tank, money.D("150"))
	require.Error(t, err)
	require.Equal(t, apperr.KindTankInsufficient, apperr.KindOf(err))

	tank.AllowNegative = true
	warnings, err := CanDispense(tank, money.D("150"))
	require.NoError(t, err)
	require.Equal(t, []string{WarnTankNegative}, warnings)
}

func TestCanDispenseDisabledTracking(t *testing.T) {
	tank := &model.Tank{
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("1"),
		TrackingMode: model.TrackingDisabled,
	}
	warnings, err := CanDispense(tank, money.D("5000"))
	require.NoError(t, err)
	require.Nil(t, warnings)
}

func TestSinceLastRefill(t *testing.T) {
	tank := &model.Tank{CurrentLevel: money.D("6000")}
	require.Nil(t, SinceLastRefill(tank))

	after := money.D("8000")
	tank.LevelAfterLastRefill = &after
	got := SinceLastRefill(tank)
	require.NotNil(t, got)
	require.True(t, got.Equal(money.D("2000")))

	// A calibration above the post-refill level clamps at zero.
	tank.CurrentLevel = money.D("9000")
	require.True(t, SinceLastRefill(tank).IsZero())
}
