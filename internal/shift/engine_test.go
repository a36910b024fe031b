package shift

import (
	"context"
	"testing"

	"github.com/google/uuid"
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
	shifts   map[uuid.UUID]*model.Shift
	readings map[uuid.UUID][]*model.NozzleReading // keyed by shift id
	manager  *model.User
	stamped  []uuid.UUID
	audits   []*model.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts:   make(map[uuid.UUID]*model.Shift),
		readings: make(map[uuid.UUID][]*model.NozzleReading),
	}
}

func (f *fakeStore) Shift(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	return f.shifts[id], nil
}

func (f *fakeStore) ActiveShift(_ context.Context, employeeID uuid.UUID) (*model.Shift, error) {
	for _, s := range f.shifts {
		if s.EmployeeID == employeeID && s.Status == model.ShiftActive {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListShifts(_ context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Shift, error) {
	var out []*model.Shift
	for _, s := range f.shifts {
		if s.StationID == stationID && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ReadingsForShift(_ context.Context, shiftID uuid.UUID) ([]*model.NozzleReading, error) {
	return f.readings[shiftID], nil
}

func (f *fakeStore) StationManager(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return f.manager, nil
}

func (f *fakeStore) CreateShiftTx(_ context.Context, s *model.Shift, entry *model.AuditLog) error {
	f.shifts[s.ID] = s
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) EndShiftTx(_ context.Context, s *model.Shift, readingIDs []uuid.UUID, entry *model.AuditLog) error {
	f.shifts[s.ID] = s
	f.stamped = append(f.stamped, readingIDs...)
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) UpdateShiftTx(_ context.Context, s *model.Shift, entry *model.AuditLog) error {
	f.shifts[s.ID] = s
	f.audits = append(f.audits, entry)
	return nil
}

type fakeHandovers struct {
	created *model.CashHandover
	err     error
}

func (f *fakeHandovers) CreateFromShift(_ context.Context, _ auth.Actor, shift *model.Shift, managerID uuid.UUID) (*model.CashHandover, error) {
	if f.err != nil {
		return nil, f.err
	}
	empID := shift.EmployeeID
	f.created = &model.CashHandover{
		ID:             uuid.New(),
		StationID:      shift.StationID,
		Type:           model.HandoverShiftCollection,
		Status:         model.HandoverPending,
		FromUserID:     &empID,
		ToUserID:       &managerID,
		ExpectedAmount: shift.ExpectedCash,
	}
	return f.created, nil
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleEmployee, IsActive: true}}
}

func testEngine() (*fakeStore, *fakeHandovers, *Engine) {
	store := newFakeStore()
	handovers := &fakeHandovers{}
	return store, handovers, NewEngine(store, allowAll{}, handovers, clock.At("2026-03-10T14:00:00Z"))
}

func startShift(t *testing.T, engine *Engine, employeeID uuid.UUID, openingCash string) *model.Shift {
	t.Helper()
	s, err := engine.Start(context.Background(), testActor(), StartInput{
		StationID:   uuid.New(),
		EmployeeID:  employeeID,
		OpeningCash: money.D(openingCash),
	})
	require.NoError(t, err)
	return s
}

func TestStartDefaultsDateAndTime(t *testing.T) {
	_, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "500")
	require.Equal(t, model.ShiftActive, s.Status)
	require.Equal(t, "2026-03-10", s.Date.String())
	require.Equal(t, "14:00:00", s.StartTime)
}

func TestStartSecondShiftRefused(t *testing.T) {
	_, _, engine := testEngine()
	emp := uuid.New()
	startShift(t, engine, emp, "500")

	_, err := engine.Start(context.Background(), testActor(), StartInput{
		StationID:  uuid.New(),
		EmployeeID: emp,
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeShiftActive, apperr.CodeOf(err))
}

func TestStartRejectsBadTime(t *testing.T) {
	_, _, engine := testEngine()
	_, err := engine.Start(context.Background(), testActor(), StartInput{
		StationID:  uuid.New(),
		EmployeeID: uuid.New(),
		StartTime:  "25:99",
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEndAggregatesReadingsAndSeedsHandover(t *testing.T) {
	store, handovers, engine := testEngine()
	store.manager = &model.User{ID: uuid.New(), Role: model.RoleManager}

	emp := uuid.New()
	s := startShift(t, engine, emp, "500")
	store.readings[s.ID] = []*model.NozzleReading{
		{ID: uuid.New(), LitresSold: money.D("100.125"), TotalAmount: money.D("10000")},
		{ID: uuid.New(), LitresSold: money.D("49.875"), TotalAmount: money.D("5000")},
	}

	ended, h, err := engine.End(context.Background(), testActor(), EndInput{
		ShiftID:         s.ID,
		CashCollected:   money.D("12400"),
		OnlineCollected: money.D("3000"),
	})
	require.NoError(t, err)
	require.Equal(t, model.ShiftEnded, ended.Status)
	require.Equal(t, 2, ended.ReadingsCount)
	require.True(t, ended.TotalLitresSold.Equal(money.D("150")))
	require.True(t, ended.TotalSalesAmount.Equal(money.D("15000")))
	// 15000 sales - 3000 online + 500 float = 12500 expected.
	require.True(t, ended.ExpectedCash.Equal(money.D("12500")))
	require.True(t, ended.CashDifference.Equal(money.D("-100")))
	require.Len(t, store.stamped, 2)

	require.NotNil(t, h)
	require.Equal(t, model.HandoverShiftCollection, h.Type)
	require.True(t, h.ExpectedAmount.Equal(money.D("12500")))
	require.Equal(t, handovers.created.ID, h.ID)
}

func TestEndSubtractsCreditSales(t *testing.T) {
	store, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "500")
	store.readings[s.ID] = []*model.NozzleReading{
		{ID: uuid.New(), LitresSold: money.D("150"), TotalAmount: money.D("15000")},
	}

	ended, _, err := engine.End(context.Background(), testActor(), EndInput{
		ShiftID:         s.ID,
		CashCollected:   money.D("10500"),
		OnlineCollected: money.D("3000"),
		CreditGiven:     money.D("2000"),
	})
	require.NoError(t, err)
	// 15000 sales - 3000 online - 2000 credit + 500 float = 10500 expected.
	require.True(t, ended.ExpectedCash.Equal(money.D("10500")))
	require.True(t, ended.CashDifference.IsZero())
	require.True(t, ended.CreditGiven.Equal(money.D("2000")))
}

func TestEndRejectsNegativeCreditGiven(t *testing.T) {
	_, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "0")

	_, _, err := engine.End(context.Background(), testActor(), EndInput{
		ShiftID:     s.ID,
		CreditGiven: money.D("-1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestEndWithoutManagerStillEndsShift(t *testing.T) {
	store, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "0")

	ended, h, err := engine.End(context.Background(), testActor(), EndInput{ShiftID: s.ID})
	require.NoError(t, err)
	require.Nil(t, h)
	require.Equal(t, model.ShiftEnded, ended.Status)
	require.Equal(t, model.ShiftEnded, store.shifts[s.ID].Status)
}

func TestEndTwiceConflicts(t *testing.T) {
	_, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "0")

	_, _, err := engine.End(context.Background(), testActor(), EndInput{ShiftID: s.ID})
	require.NoError(t, err)
	_, _, err = engine.End(context.Background(), testActor(), EndInput{ShiftID: s.ID})
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestEndRejectsNegativeCollections(t *testing.T) {
	_, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "0")

	_, _, err := engine.End(context.Background(), testActor(), EndInput{
		ShiftID:       s.ID,
		CashCollected: money.D("-1"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelVoidsActiveShift(t *testing.T) {
	_, _, engine := testEngine()
	emp := uuid.New()
	s := startShift(t, engine, emp, "0")

	cancelled, err := engine.Cancel(context.Background(), testActor(), s.ID, "wrong station selected")
	require.NoError(t, err)
	require.Equal(t, model.ShiftCancelled, cancelled.Status)
	require.Equal(t, "wrong station selected", cancelled.Notes)

	// Cancelling frees the employee for a new shift.
	_, err = engine.Start(context.Background(), testActor(), StartInput{
		StationID:  uuid.New(),
		EmployeeID: emp,
	})
	require.NoError(t, err)
}

func TestCancelEndedShiftConflicts(t *testing.T) {
	_, _, engine := testEngine()
	s := startShift(t, engine, uuid.New(), "0")
	_, _, err := engine.End(context.Background(), testActor(), EndInput{ShiftID: s.ID})
	require.NoError(t, err)

	_, err = engine.Cancel(context.Background(), testActor(), s.ID, "too late")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestActiveReturnsNotFoundWhenNoneRunning(t *testing.T) {
	_, _, engine := testEngine()
	_, err := engine.Active(context.Background(), testActor(), uuid.New())
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
