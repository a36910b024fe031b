package readings

import (
	"context"
	"testing"
	"time"

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

type fakePlans struct {
	plan     *model.Plan
	checkErr error
	recorded int
}

func (f *fakePlans) PlanForStation(context.Context, uuid.UUID) (*model.Plan, error) {
	return f.plan, nil
}
func (f *fakePlans) CheckMonthly(context.Context, uuid.UUID, quota.Kind) error { return f.checkErr }
func (f *fakePlans) RecordMonthly(context.Context, uuid.UUID, quota.Kind) error {
	f.recorded++
	return nil
}

type fakeStore struct {
	nozzle  *model.Nozzle
	station *model.Station
	price   *model.FuelPrice
	tank    *model.Tank

	readings []*model.NozzleReading

	savedNozzle *model.Nozzle
	savedTank   *model.Tank
	audits      []*model.AuditLog
	lastFilter  Filter
}

func (f *fakeStore) Nozzle(_ context.Context, id uuid.UUID) (*model.Nozzle, error) {
	if f.nozzle != nil && f.nozzle.ID == id {
		return f.nozzle, nil
	}
	return nil, nil
}

func (f *fakeStore) Station(context.Context, uuid.UUID) (*model.Station, error) {
	return f.station, nil
}

func (f *fakeStore) Reading(_ context.Context, id uuid.UUID) (*model.NozzleReading, error) {
	for _, r := range f.readings {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestBefore(_ context.Context, nozzleID uuid.UUID, date model.Date, createdBefore time.Time) (*model.NozzleReading, error) {
	var best *model.NozzleReading
	for _, r := range f.readings {
		if r.NozzleID != nozzleID || r.ApprovalStatus == model.ApprovalRejected {
			continue
		}
		if r.ReadingDate.After(date) || (r.ReadingDate.Equal(date) && !r.CreatedAt.Before(createdBefore)) {
			continue
		}
		if best == nil || r.ReadingDate.After(best.ReadingDate) ||
			(r.ReadingDate.Equal(best.ReadingDate) && r.CreatedAt.After(best.CreatedAt)) {
			best = r
		}
	}
	return best, nil
}

func (f *fakeStore) FindDuplicate(_ context.Context, nozzleID uuid.UUID, date model.Date, timeOfDay string, value decimal.Decimal) (*model.NozzleReading, error) {
	for _, r := range f.readings {
		if r.NozzleID == nozzleID && r.ReadingDate.Equal(date) && r.ReadingTime == timeOfDay && r.ReadingValue.Equal(value) {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ApprovedOn(_ context.Context, nozzleID uuid.UUID, date model.Date) (*model.NozzleReading, error) {
	for _, r := range f.readings {
		if r.NozzleID == nozzleID && r.ReadingDate.Equal(date) &&
			r.ApprovalStatus == model.ApprovalApproved && !r.IsSample {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) PriceOn(context.Context, uuid.UUID, model.FuelType, model.Date) (*model.FuelPrice, error) {
	return f.price, nil
}

func (f *fakeStore) TankForFuel(context.Context, uuid.UUID, model.FuelType) (*model.Tank, error) {
	return f.tank, nil
}

func (f *fakeStore) CreateReadingTx(_ context.Context, r *model.NozzleReading, nozzle *model.Nozzle, tnk *model.Tank, entry *model.AuditLog) error {
	f.readings = append(f.readings, r)
	f.savedNozzle = nozzle
	if tnk != nil {
		f.savedTank = tnk
		f.tank = tnk
	}
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) SetApprovalTx(_ context.Context, r *model.NozzleReading, tnk *model.Tank, entry *model.AuditLog) error {
	for i, old := range f.readings {
		if old.ID == r.ID {
			f.readings[i] = r
		}
	}
	if tnk != nil {
		f.savedTank = tnk
		f.tank = tnk
	}
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) ListReadings(_ context.Context, filter Filter) ([]*model.NozzleReading, int, error) {
	f.lastFilter = filter
	return f.readings, len(f.readings), nil
}

// tickClock advances one second per call so rows created in sequence carry
// distinct creation instants, as they would against a real database.
type tickClock struct{ t time.Time }

func (c *tickClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func testClock() clock.Clock { return &tickClock{t: clock.At("2026-03-10T12:00:00Z").T} }

func testActor() auth.Actor {
	return auth.Actor{
		User: &model.User{ID: uuid.New(), Role: model.RoleManager, IsActive: true},
		IP:   "10.0.0.1",
	}
}

func testFixture() (*fakeStore, *fakePlans, *Engine) {
	stationID := uuid.New()
	nozzle := &model.Nozzle{
		ID:        uuid.New(),
		PumpID:    uuid.New(),
		StationID: stationID,
		FuelType:  model.FuelPetrol,
		Status:    model.PumpActive,
	}
	store := &fakeStore{
		nozzle:  nozzle,
		station: &model.Station{ID: stationID, IsActive: true},
		price: &model.FuelPrice{
			StationID:    stationID,
			FuelType:     model.FuelPetrol,
			SellingPrice: money.D("100.50"),
		},
	}
	plans := &fakePlans{plan: &model.Plan{BackdatedDays: 3, SalesRetentionDays: 90}}
	engine := NewEngine(store, allowAll{}, plans, testClock())
	return store, plans, engine
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateFirstReadingEstablishesBaseline(t *testing.T) {
	store, _, engine := testFixture()

	r, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)
	require.True(t, r.LitresSold.IsZero())
	require.True(t, r.TotalAmount.IsZero())
	require.Nil(t, r.PreviousReadingID)
	require.Equal(t, model.ApprovalPending, r.ApprovalStatus)

	// The nozzle cache now carries the baseline.
	require.NotNil(t, store.savedNozzle.LastReading)
	require.True(t, store.savedNozzle.LastReading.Equal(money.D("1000")))
}

func TestCreateDerivesSaleFromDelta(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)

	r, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1125.456"),
	})
	require.NoError(t, err)
	require.True(t, r.LitresSold.Equal(money.D("125.456")), "got %s", r.LitresSold)
	// 125.456 * 100.50 = 12608.328 -> 12608.33
	require.True(t, r.TotalAmount.Equal(money.D("12608.33")), "got %s", r.TotalAmount)
	require.NotNil(t, r.PreviousReadingID)
}

func TestCreateUsesInitialReadingAsBaseline(t *testing.T) {
	store, _, engine := testFixture()
	initial := money.D("500")
	store.nozzle.InitialReading = &initial

	r, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("600"),
	})
	require.NoError(t, err)
	require.True(t, r.LitresSold.Equal(money.D("100")))
	require.Nil(t, r.PreviousReadingID)
	require.NotNil(t, r.PreviousReadingValue)
}

func TestCreateMeterResetWarnsAndSellsNothing(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)

	r, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("40"),
	})
	require.NoError(t, err)
	require.True(t, r.LitresSold.IsZero())
	require.True(t, r.TotalAmount.IsZero())
	require.Contains(t, r.Warnings, model.WarningMeterReset)
}

func TestCreateSampleAdvancesBaselineWithoutRevenue(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)

	sample, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1005"),
		IsSample:     true,
	})
	require.NoError(t, err)
	require.True(t, sample.LitresSold.IsZero())
	require.True(t, sample.TotalAmount.IsZero())

	// The next reading measures from the sample's value, not from before it.
	next, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "14:00:00",
		ReadingValue: money.D("1015"),
	})
	require.NoError(t, err)
	require.True(t, next.LitresSold.Equal(money.D("10")), "got %s", next.LitresSold)
}

func TestCreateDuplicateReturnsExistingRow(t *testing.T) {
	store, plans, engine := testFixture()
	actor := testActor()
	in := CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "08:00:00",
		ReadingValue: money.D("1000"),
	}

	first, err := engine.Create(context.Background(), actor, in)
	require.NoError(t, err)
	second, err := engine.Create(context.Background(), actor, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, store.readings, 1)
	require.Equal(t, 1, plans.recorded, "duplicate must not consume monthly quota")
}

func TestCreateRejectsFutureDate(t *testing.T) {
	store, _, engine := testFixture()

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-11"),
		ReadingValue: money.D("1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeFutureDate, apperr.CodeOf(err))
}

func TestCreateEnforcesBackdatingWindow(t *testing.T) {
	store, _, engine := testFixture()

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-06"),
		ReadingValue: money.D("1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeBackdatedExceeded, apperr.CodeOf(err))

	// The edge of the window is allowed.
	_, err = engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-07"),
		ReadingValue: money.D("1"),
	})
	require.NoError(t, err)
}

func TestCreateRequiresEffectivePrice(t *testing.T) {
	store, _, engine := testFixture()
	store.price = nil

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindNoPrice, apperr.KindOf(err))
}

func TestCreateRequiresShiftWhenStationDemandsIt(t *testing.T) {
	store, _, engine := testFixture()
	store.station.ShiftRequiredForReading = true

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	shiftID := uuid.New()
	_, err = engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1"),
		ShiftID:      &shiftID,
	})
	require.NoError(t, err)
}

func TestCreateDecrementsTankOnSale(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()
	store.tank = &model.Tank{
		ID:           uuid.New(),
		StationID:    store.nozzle.StationID,
		FuelType:     model.FuelPetrol,
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("5000"),
		TrackingMode: model.TrackingWarning,
	}

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)
	require.Nil(t, store.savedTank, "baseline reading must not touch the tank")

	_, err = engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1200"),
	})
	require.NoError(t, err)
	require.NotNil(t, store.savedTank)
	require.True(t, store.savedTank.CurrentLevel.Equal(money.D("4800")), "got %s", store.savedTank.CurrentLevel)
}

func TestCreateStrictTankBlocksOverdraw(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()
	store.tank = &model.Tank{
		ID:           uuid.New(),
		StationID:    store.nozzle.StationID,
		FuelType:     model.FuelPetrol,
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("50"),
		TrackingMode: model.TrackingStrict,
	}

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)

	_, err = engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1100"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindTankInsufficient, apperr.KindOf(err))
}

func TestCreateForcesIsInitialReadingFalse(t *testing.T) {
	store, _, engine := testFixture()

	r, err := engine.Create(context.Background(), testActor(), CreateInput{
		NozzleID:         store.nozzle.ID,
		ReadingDate:      date("2026-03-10"),
		ReadingValue:     money.D("100"),
		IsInitialReading: true,
	})
	require.NoError(t, err)
	require.False(t, r.IsInitialReading)
	require.Equal(t, model.SeverityWarning, store.audits[len(store.audits)-1].Severity)
}

func TestRejectRestoresTankLevel(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()
	store.tank = &model.Tank{
		ID:           uuid.New(),
		StationID:    store.nozzle.StationID,
		FuelType:     model.FuelPetrol,
		Capacity:     money.D("10000"),
		CurrentLevel: money.D("5000"),
		TrackingMode: model.TrackingWarning,
	}

	_, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-09"),
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)
	r, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("1200"),
	})
	require.NoError(t, err)
	require.True(t, store.tank.CurrentLevel.Equal(money.D("4800")))

	rejected, err := engine.Reject(context.Background(), actor, r.ID, "entered wrong pump")
	require.NoError(t, err)
	require.Equal(t, model.ApprovalRejected, rejected.ApprovalStatus)
	require.True(t, store.tank.CurrentLevel.Equal(money.D("5000")), "got %s", store.tank.CurrentLevel)
}

func TestApproveRequiresPendingStatus(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	r, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingValue: money.D("100"),
	})
	require.NoError(t, err)

	approved, err := engine.Approve(context.Background(), actor, r.ID)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalApproved, approved.ApprovalStatus)

	_, err = engine.Approve(context.Background(), actor, r.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestApproveAllowsOneNonSamplePerNozzleDay(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	first, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "08:00:00",
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)
	second, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "18:00:00",
		ReadingValue: money.D("1100"),
	})
	require.NoError(t, err)

	_, err = engine.Approve(context.Background(), actor, first.ID)
	require.NoError(t, err)

	_, err = engine.Approve(context.Background(), actor, second.ID)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestApproveSampleBesideApprovedReading(t *testing.T) {
	store, _, engine := testFixture()
	actor := testActor()

	sale, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "08:00:00",
		ReadingValue: money.D("1000"),
	})
	require.NoError(t, err)
	sample, err := engine.Create(context.Background(), actor, CreateInput{
		NozzleID:     store.nozzle.ID,
		ReadingDate:  date("2026-03-10"),
		ReadingTime:  "09:00:00",
		ReadingValue: money.D("1002"),
		IsSample:     true,
	})
	require.NoError(t, err)

	_, err = engine.Approve(context.Background(), actor, sale.ID)
	require.NoError(t, err)

	// Samples sit outside the one-per-day rule.
	approved, err := engine.Approve(context.Background(), actor, sample.ID)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalApproved, approved.ApprovalStatus)
}

func TestRejectRequiresReason(t *testing.T) {
	_, _, engine := testFixture()
	_, err := engine.Reject(context.Background(), testActor(), uuid.New(), "")
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListClampsToRetentionWindow(t *testing.T) {
	store, plans, engine := testFixture()
	plans.plan.SalesRetentionDays = 7
	actor := testActor()

	early := date("2026-01-01")
	f := Filter{StationID: store.nozzle.StationID, From: &early}
	_, _, err := engine.List(context.Background(), actor, f)
	require.NoError(t, err)
	require.NotNil(t, store.lastFilter.From)
	require.True(t, store.lastFilter.From.Equal(date("2026-03-03")), "got %s", store.lastFilter.From)
}
