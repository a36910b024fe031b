package handover

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

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
	handovers []*model.CashHandover
	audits    []*model.AuditLog
}

func (f *fakeStore) Handover(_ context.Context, id uuid.UUID) (*model.CashHandover, error) {
	for _, h := range f.handovers {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestConfirmed(_ context.Context, stationID uuid.UUID, typ model.HandoverType, fromUserID *uuid.UUID) (*model.CashHandover, error) {
	var best *model.CashHandover
	for _, h := range f.handovers {
		if h.StationID != stationID || h.Type != typ {
			continue
		}
		if h.Status != model.HandoverConfirmed && h.Status != model.HandoverResolved {
			continue
		}
		if fromUserID != nil && (h.FromUserID == nil || *h.FromUserID != *fromUserID) {
			continue
		}
		if best == nil || h.CreatedAt.After(best.CreatedAt) {
			best = h
		}
	}
	return best, nil
}

func (f *fakeStore) ListHandovers(_ context.Context, filter ListFilter) ([]*model.CashHandover, error) {
	var out []*model.CashHandover
	for _, h := range f.handovers {
		if h.StationID != filter.StationID {
			continue
		}
		if filter.Type != nil && h.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && h.Status != *filter.Status {
			continue
		}
		if filter.ToUserID != nil && (h.ToUserID == nil || *h.ToUserID != *filter.ToUserID) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeStore) CreateHandoverTx(_ context.Context, h *model.CashHandover, entry *model.AuditLog) error {
	f.handovers = append(f.handovers, h)
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) UpdateHandoverTx(_ context.Context, h *model.CashHandover, entry *model.AuditLog) error {
	for i, old := range f.handovers {
		if old.ID == h.ID {
			f.handovers[i] = h
		}
	}
	f.audits = append(f.audits, entry)
	return nil
}

func testEngine() (*fakeStore, *Engine) {
	store := &fakeStore{}
	return store, NewEngine(store, allowAll{}, clock.At("2026-03-10T12:00:00Z"))
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleManager, IsActive: true}}
}

func date(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func shiftCollection(store *fakeStore, engine *Engine, t *testing.T, amount string) *model.CashHandover {
	t.Helper()
	emp, mgr := uuid.New(), uuid.New()
	h, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:      uuid.New(),
		Type:           model.HandoverShiftCollection,
		Date:           date("2026-03-10"),
		FromUserID:     &emp,
		ToUserID:       &mgr,
		ExpectedAmount: money.D(amount),
	})
	require.NoError(t, err)
	return h
}

func TestCreateShiftCollectionNeedsNoPredecessor(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "5000")
	require.Equal(t, model.HandoverPending, h.Status)
	require.Nil(t, h.PreviousHandoverID)
}

func TestCreateEmployeeToManagerRequiresConfirmedCollection(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	emp, mgr := uuid.New(), uuid.New()

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:      stationID,
		Type:           model.HandoverEmployeeToManager,
		FromUserID:     &emp,
		ToUserID:       &mgr,
		ExpectedAmount: money.D("5000"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeSequenceViolation, apperr.CodeOf(err))

	// A confirmed shift_collection by the same employee satisfies the chain.
	store.handovers = append(store.handovers, &model.CashHandover{
		ID:         uuid.New(),
		StationID:  stationID,
		Type:       model.HandoverShiftCollection,
		Status:     model.HandoverConfirmed,
		FromUserID: &emp,
	})
	h, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:      stationID,
		Type:           model.HandoverEmployeeToManager,
		FromUserID:     &emp,
		ToUserID:       &mgr,
		ExpectedAmount: money.D("5000"),
	})
	require.NoError(t, err)
	require.NotNil(t, h.PreviousHandoverID)
}

func TestCreatePreviousHandoverMustBeConfirmed(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	emp, mgr := uuid.New(), uuid.New()
	prev := &model.CashHandover{
		ID:         uuid.New(),
		StationID:  stationID,
		Type:       model.HandoverShiftCollection,
		Status:     model.HandoverPending,
		FromUserID: &emp,
	}
	store.handovers = append(store.handovers, prev)

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:          stationID,
		Type:               model.HandoverEmployeeToManager,
		FromUserID:         &emp,
		ToUserID:           &mgr,
		ExpectedAmount:     money.D("5000"),
		PreviousHandoverID: &prev.ID,
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeSequenceViolation, apperr.CodeOf(err))
}

func TestCreateBankDepositRequiresBankFields(t *testing.T) {
	_, engine := testEngine()
	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:      uuid.New(),
		Type:           model.HandoverDepositToBank,
		ExpectedAmount: money.D("5000"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestConfirmWithinToleranceConfirms(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "10000")

	// 10080 is an 80 variance: under 100 absolute and under 2%.
	got, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("10080"), "")
	require.NoError(t, err)
	require.Equal(t, model.HandoverConfirmed, got.Status)
	require.True(t, got.Difference.Equal(money.D("80")))
}

func TestConfirmLargeAbsoluteVarianceDisputes(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "10000")

	// 150 over: beyond the 100 absolute threshold even though only 1.5%.
	got, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("10150"), "")
	require.NoError(t, err)
	require.Equal(t, model.HandoverDisputed, got.Status)
	require.NotEmpty(t, got.DisputeNotes)
}

func TestConfirmLargePercentVarianceDisputes(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "1000")

	// 50 short: only 50 absolute, but 5% of expected.
	got, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("950"), "")
	require.NoError(t, err)
	require.Equal(t, model.HandoverDisputed, got.Status)
}

func TestConfirmExactBoundaryDoesNotDispute(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "10000")

	// Exactly 100 and exactly 1%: thresholds are strict inequalities.
	got, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("10100"), "")
	require.NoError(t, err)
	require.Equal(t, model.HandoverConfirmed, got.Status)
}

func TestConfirmTwiceConflicts(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "1000")

	_, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("1000"), "")
	require.NoError(t, err)
	_, err = engine.Confirm(context.Background(), testActor(), h.ID, money.D("1000"), "")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestResolveDisputeRequiresDisputedStatus(t *testing.T) {
	store, engine := testEngine()
	h := shiftCollection(store, engine, t, "1000")

	_, err := engine.ResolveDispute(context.Background(), testActor(), h.ID, "counted again, short by 200")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	disputed, err := engine.Confirm(context.Background(), testActor(), h.ID, money.D("800"), "")
	require.NoError(t, err)
	require.Equal(t, model.HandoverDisputed, disputed.Status)

	resolved, err := engine.ResolveDispute(context.Background(), testActor(), h.ID, "employee repaid the shortfall")
	require.NoError(t, err)
	require.Equal(t, model.HandoverResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedBy)
}

// slowStore stretches the window between the predecessor lookup and the
// insert so overlapping creates would be caught.
type slowStore struct {
	*fakeStore
	inFlight int32
	overlap  int32
}

func (s *slowStore) LatestConfirmed(ctx context.Context, stationID uuid.UUID, typ model.HandoverType, fromUserID *uuid.UUID) (*model.CashHandover, error) {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	time.Sleep(time.Millisecond)
	return s.fakeStore.LatestConfirmed(ctx, stationID, typ, fromUserID)
}

func (s *slowStore) CreateHandoverTx(ctx context.Context, h *model.CashHandover, entry *model.AuditLog) error {
	defer atomic.AddInt32(&s.inFlight, -1)
	return s.fakeStore.CreateHandoverTx(ctx, h, entry)
}

func TestCreateSerializesPerStation(t *testing.T) {
	store := &slowStore{fakeStore: &fakeStore{}}
	engine := NewEngine(store, allowAll{}, clock.At("2026-03-10T12:00:00Z"))

	stationID := uuid.New()
	emp, mgr := uuid.New(), uuid.New()
	store.handovers = append(store.handovers, &model.CashHandover{
		ID:         uuid.New(),
		StationID:  stationID,
		Type:       model.HandoverShiftCollection,
		Status:     model.HandoverConfirmed,
		FromUserID: &emp,
	})

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Create(context.Background(), testActor(), CreateInput{
				StationID:      stationID,
				Type:           model.HandoverEmployeeToManager,
				FromUserID:     &emp,
				ToUserID:       &mgr,
				ExpectedAmount: money.D("5000"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Zero(t, atomic.LoadInt32(&store.overlap))
}

func TestCashFlowSummaryCountsAttentionStates(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	emp, mgr := uuid.New(), uuid.New()
	store.handovers = []*model.CashHandover{
		{ID: uuid.New(), StationID: stationID, Type: model.HandoverShiftCollection,
			Status: model.HandoverPending, FromUserID: &emp, ToUserID: &mgr,
			ExpectedAmount: money.D("1000"), ActualAmount: money.Zero},
		{ID: uuid.New(), StationID: stationID, Type: model.HandoverShiftCollection,
			Status: model.HandoverDisputed, FromUserID: &emp, ToUserID: &mgr,
			ExpectedAmount: money.D("2000"), ActualAmount: money.D("1500")},
		{ID: uuid.New(), StationID: stationID, Type: model.HandoverDepositToBank,
			Status: model.HandoverConfirmed, ExpectedAmount: money.D("3000"),
			ActualAmount: money.D("3000"), BankName: "SBI", DepositReference: "DEP-1"},
	}

	s, err := engine.CashFlowSummary(context.Background(), testActor(), stationID, date("2026-03-01"), date("2026-03-31"))
	require.NoError(t, err)
	require.Equal(t, 1, s.Pending)
	require.Equal(t, 1, s.Disputed)
	require.Equal(t, 2, s.ByType[model.HandoverShiftCollection].Count)
	require.True(t, s.ByType[model.HandoverShiftCollection].Expected.Equal(money.D("3000")))
	require.True(t, s.ByType[model.HandoverDepositToBank].Actual.Equal(money.D("3000")))
}
