package settlement

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
	settlements map[uuid.UUID]*model.Settlement
	readings    map[uuid.UUID]*model.NozzleReading
	shifts      []*model.Shift
	names       map[uuid.UUID]string
	audits      []*model.AuditLog

	finalized []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settlements: make(map[uuid.UUID]*model.Settlement),
		readings:    make(map[uuid.UUID]*model.NozzleReading),
		names:       make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) Settlement(_ context.Context, id uuid.UUID) (*model.Settlement, error) {
	return f.settlements[id], nil
}

func (f *fakeStore) ListSettlements(_ context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Settlement, error) {
	var out []*model.Settlement
	for _, s := range f.settlements {
		if s.StationID != stationID || s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ReadingsByIDs(_ context.Context, ids []uuid.UUID) ([]*model.NozzleReading, error) {
	var out []*model.NozzleReading
	for _, id := range ids {
		if r, ok := f.readings[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) EndedShiftsOn(_ context.Context, stationID uuid.UUID, date model.Date) ([]*model.Shift, error) {
	var out []*model.Shift
	for _, sh := range f.shifts {
		if sh.StationID == stationID && sh.Date.Equal(date) && sh.Status == model.ShiftEnded {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (f *fakeStore) UserName(_ context.Context, id uuid.UUID) (string, error) {
	return f.names[id], nil
}

func (f *fakeStore) CreateSettlementTx(_ context.Context, s *model.Settlement, readingIDs []uuid.UUID, entry *model.AuditLog) error {
	f.settlements[s.ID] = s
	for _, id := range readingIDs {
		if r, ok := f.readings[id]; ok {
			sid := s.ID
			r.SettlementID = &sid
			r.FlowStatus = model.FlowPendingSettlement
		}
	}
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) UpdateSettlementTx(_ context.Context, s *model.Settlement, entry *model.AuditLog) error {
	f.settlements[s.ID] = s
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) FinalizeSettlementTx(_ context.Context, s *model.Settlement, entry *model.AuditLog) error {
	f.settlements[s.ID] = s
	f.finalized = append(f.finalized, s.ID)
	for _, r := range f.readings {
		if r.SettlementID != nil && *r.SettlementID == s.ID {
			r.FlowStatus = model.FlowSettled
		}
	}
	f.audits = append(f.audits, entry)
	return nil
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleOwner, IsActive: true}}
}

func testEngine() (*fakeStore, *Engine) {
	store := newFakeStore()
	return store, NewEngine(store, allowAll{}, clock.At("2026-03-10T20:00:00Z"))
}

func seedReading(store *fakeStore, stationID uuid.UUID, day string, amount string) *model.NozzleReading {
	r := &model.NozzleReading{
		ID:             uuid.New(),
		StationID:      stationID,
		ReadingDate:    model.MustDate(day),
		TotalAmount:    money.D(amount),
		ApprovalStatus: model.ApprovalApproved,
	}
	store.readings[r.ID] = r
	return r
}

func TestCreateDraftDerivesExpectedCashFromReadings(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r1 := seedReading(store, stationID, "2026-03-10", "8000")
	r2 := seedReading(store, stationID, "2026-03-10", "4000")

	s, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:      stationID,
		Date:           model.MustDate("2026-03-10"),
		ReadingIDs:     []uuid.UUID{r1.ID, r2.ID},
		ReportedCash:   money.D("9000"),
		ReportedOnline: money.D("2000"),
		ReportedCredit: money.D("1000"),
		ActualCash:     money.D("8950"),
	})
	require.NoError(t, err)
	// 12000 sales - 2000 online - 1000 credit = 9000 expected cash.
	require.True(t, s.ExpectedCash.Equal(money.D("9000")))
	require.True(t, s.Variance.Equal(money.D("-50")))
	require.Equal(t, model.SettlementDraft, s.Status)

	require.NotNil(t, store.readings[r1.ID].SettlementID)
	require.Equal(t, model.FlowPendingSettlement, store.readings[r1.ID].FlowStatus)
}

func TestCreateDraftWithoutReadingsUsesReportedCash(t *testing.T) {
	_, engine := testEngine()
	s, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:    uuid.New(),
		Date:         model.MustDate("2026-03-10"),
		ReportedCash: money.D("5000"),
		ActualCash:   money.D("5000"),
	})
	require.NoError(t, err)
	require.True(t, s.ExpectedCash.Equal(money.D("5000")))
	require.True(t, s.Variance.IsZero())
}

func TestCreateDraftRejectsReadingFromAnotherDay(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-09", "8000")

	_, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateDraftRejectsAlreadySettledReading(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "8000")
	other := uuid.New()
	r.SettlementID = &other

	_, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeSettlementLocked, apperr.CodeOf(err))
}

func TestCreateDraftRejectsMissingReading(t *testing.T) {
	_, engine := testEngine()
	_, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:  uuid.New(),
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateDraftCollectsEmployeeShortfalls(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	emp := uuid.New()
	store.names[emp] = "Suresh"
	store.shifts = []*model.Shift{
		{ID: uuid.New(), StationID: stationID, EmployeeID: emp, Date: model.MustDate("2026-03-10"),
			Status: model.ShiftEnded, CashDifference: money.D("-150")},
		{ID: uuid.New(), StationID: stationID, EmployeeID: emp, Date: model.MustDate("2026-03-10"),
			Status: model.ShiftEnded, CashDifference: money.D("-50")},
		{ID: uuid.New(), StationID: stationID, EmployeeID: uuid.New(), Date: model.MustDate("2026-03-10"),
			Status: model.ShiftEnded, CashDifference: money.D("30")}, // surplus, not a shortfall
	}

	s, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReportedCash: money.D("1000"),
		ActualCash:   money.D("1000"),
	})
	require.NoError(t, err)
	require.Len(t, s.Shortfalls, 1)
	got := s.Shortfalls[emp.String()]
	require.Equal(t, "Suresh", got.Name)
	require.True(t, got.Shortfall.Equal(money.D("200")))
	require.Equal(t, 2, got.Count)
}

func TestUpdateRecomputesVariances(t *testing.T) {
	_, engine := testEngine()
	s, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:      uuid.New(),
		Date:           model.MustDate("2026-03-10"),
		ReportedCash:   money.D("9000"),
		ReportedOnline: money.D("2000"),
		ReportedCredit: money.D("1000"),
		ActualCash:     money.D("9000"),
	})
	require.NoError(t, err)

	actual := money.D("8900")
	online := money.D("2100")
	got, err := engine.Update(context.Background(), testActor(), s.ID, UpdateInput{
		ActualCash:      &actual,
		ConfirmedOnline: &online,
	})
	require.NoError(t, err)
	require.True(t, got.Variance.Equal(money.D("-100")))
	require.True(t, got.OnlineVariance.Equal(money.D("100")))
	require.True(t, got.CreditVariance.IsZero())
}

func TestLifecycleDraftFinalLocked(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "5000")

	s, err := engine.CreateDraft(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		ActualCash: money.D("5000"),
	})
	require.NoError(t, err)

	// Locking a draft skips a step.
	_, err = engine.Lock(context.Background(), testActor(), s.ID)
	require.Error(t, err)
	require.Equal(t, apperr.CodeSettlementLocked, apperr.CodeOf(err))

	final, err := engine.Finalize(context.Background(), testActor(), s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SettlementFinal, final.Status)
	require.NotNil(t, final.FinalizedAt)
	require.Equal(t, model.FlowSettled, store.readings[r.ID].FlowStatus)

	// Final settlements refuse edits.
	actual := money.D("1")
	_, err = engine.Update(context.Background(), testActor(), s.ID, UpdateInput{ActualCash: &actual})
	require.Error(t, err)
	require.Equal(t, apperr.CodeSettlementLocked, apperr.CodeOf(err))

	// Finalizing twice refuses.
	_, err = engine.Finalize(context.Background(), testActor(), s.ID)
	require.Error(t, err)

	locked, err := engine.Lock(context.Background(), testActor(), s.ID)
	require.NoError(t, err)
	require.Equal(t, model.SettlementLocked, locked.Status)

	// Locked is terminal.
	_, err = engine.Lock(context.Background(), testActor(), s.ID)
	require.Error(t, err)
}

func TestListFiltersByWindow(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	for _, day := range []string{"2026-03-01", "2026-03-05", "2026-03-20"} {
		s := &model.Settlement{ID: uuid.New(), StationID: stationID, Date: model.MustDate(day), Status: model.SettlementDraft}
		store.settlements[s.ID] = s
	}

	rows, err := engine.List(context.Background(), testActor(), stationID, model.MustDate("2026-03-01"), model.MustDate("2026-03-10"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
