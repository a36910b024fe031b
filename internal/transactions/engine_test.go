package transactions

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
	transactions map[uuid.UUID]*model.DailyTransaction
	readings     map[uuid.UUID]*model.NozzleReading
	creditors    map[uuid.UUID]*model.Creditor
	ledger       []*model.CreditTransaction
	audits       []*model.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[uuid.UUID]*model.DailyTransaction),
		readings:     make(map[uuid.UUID]*model.NozzleReading),
		creditors:    make(map[uuid.UUID]*model.Creditor),
	}
}

func (f *fakeStore) Transaction(_ context.Context, id uuid.UUID) (*model.DailyTransaction, error) {
	return f.transactions[id], nil
}

func (f *fakeStore) ListTransactions(_ context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.DailyTransaction, error) {
	var out []*model.DailyTransaction
	for _, tx := range f.transactions {
		if tx.StationID != stationID || tx.TransactionDate.Before(from) || tx.TransactionDate.After(to) {
			continue
		}
		out = append(out, tx)
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

func (f *fakeStore) Creditor(_ context.Context, id uuid.UUID) (*model.Creditor, error) {
	return f.creditors[id], nil
}

func (f *fakeStore) LedgerFor(_ context.Context, creditorID uuid.UUID) ([]*model.CreditTransaction, error) {
	var out []*model.CreditTransaction
	for _, t := range f.ledger {
		if t.CreditorID == creditorID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) LinksFor(context.Context, uuid.UUID) ([]*model.CreditSettlementLink, error) {
	return nil, nil
}

func (f *fakeStore) CreditEntriesForTransaction(_ context.Context, txID uuid.UUID) ([]*model.CreditTransaction, error) {
	var out []*model.CreditTransaction
	for _, t := range f.ledger {
		if t.TransactionID != nil && *t.TransactionID == txID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateTransactionTx(_ context.Context, tx *model.DailyTransaction, credits []*model.CreditTransaction, creditors []*model.Creditor, entry *model.AuditLog) error {
	f.transactions[tx.ID] = tx
	f.ledger = append(f.ledger, credits...)
	for _, c := range creditors {
		f.creditors[c.ID] = c
	}
	for _, id := range tx.ReadingIDs {
		if r, ok := f.readings[id]; ok {
			txID := tx.ID
			r.TransactionID = &txID
			if r.FlowStatus == model.FlowUnsettled {
				r.FlowStatus = model.FlowPendingSettlement
			}
		}
	}
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) UpdateTransactionTx(_ context.Context, tx *model.DailyTransaction, entry *model.AuditLog) error {
	f.transactions[tx.ID] = tx
	f.audits = append(f.audits, entry)
	return nil
}

func (f *fakeStore) CancelTransactionTx(_ context.Context, tx *model.DailyTransaction, creditTxIDs []uuid.UUID, creditors []*model.Creditor, entry *model.AuditLog) error {
	f.transactions[tx.ID] = tx
	drop := make(map[uuid.UUID]bool, len(creditTxIDs))
	for _, id := range creditTxIDs {
		drop[id] = true
	}
	kept := f.ledger[:0]
	for _, t := range f.ledger {
		if !drop[t.ID] {
			kept = append(kept, t)
		}
	}
	f.ledger = kept
	for _, c := range creditors {
		f.creditors[c.ID] = c
	}
	for _, id := range tx.ReadingIDs {
		if r, ok := f.readings[id]; ok {
			r.TransactionID = nil
			if r.FlowStatus == model.FlowPendingSettlement && r.SettlementID == nil {
				r.FlowStatus = model.FlowUnsettled
			}
		}
	}
	f.audits = append(f.audits, entry)
	return nil
}

func testActor() auth.Actor {
	return auth.Actor{User: &model.User{ID: uuid.New(), Role: model.RoleManager, IsActive: true}}
}

func testEngine() (*fakeStore, *Engine) {
	store := newFakeStore()
	return store, NewEngine(store, allowAll{}, clock.At("2026-03-10T20:00:00Z"))
}

func seedReading(store *fakeStore, stationID uuid.UUID, day, litres, amount string) *model.NozzleReading {
	r := &model.NozzleReading{
		ID:             uuid.New(),
		StationID:      stationID,
		ReadingDate:    model.MustDate(day),
		LitresSold:     money.D(litres),
		TotalAmount:    money.D(amount),
		ApprovalStatus: model.ApprovalApproved,
		FlowStatus:     model.FlowUnsettled,
	}
	store.readings[r.ID] = r
	return r
}

func seedCreditor(store *fakeStore, stationID uuid.UUID, limit string) *model.Creditor {
	c := &model.Creditor{
		ID:             uuid.New(),
		StationID:      stationID,
		Name:           "Highway Logistics",
		CreditLimit:    money.D(limit),
		CurrentBalance: money.D("0"),
		IsActive:       true,
	}
	store.creditors[c.ID] = c
	return c
}

func payment(cash, online, credit string) model.PaymentBreakdown {
	return model.PaymentBreakdown{Cash: money.D(cash), Online: money.D(online), Credit: money.D(credit)}
}

func TestCreateBuildsEnvelopeAndStampsReadings(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r1 := seedReading(store, stationID, "2026-03-10", "100", "10000")
	r2 := seedReading(store, stationID, "2026-03-10", "50", "5000")

	tx, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r1.ID, r2.ID},
		Payment:    payment("10000", "5000", "0"),
	})
	require.NoError(t, err)
	require.Equal(t, model.TransactionSubmitted, tx.Status)
	require.True(t, tx.TotalLitres.Equal(money.D("150")))
	require.True(t, tx.TotalSaleValue.Equal(money.D("15000")))
	require.Equal(t, &tx.ID, store.readings[r1.ID].TransactionID)
	require.Equal(t, model.FlowPendingSettlement, store.readings[r1.ID].FlowStatus)
	require.Equal(t, model.FlowPendingSettlement, store.readings[r2.ID].FlowStatus)
}

func TestCreateRejectsPaymentMismatch(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("9000", "500", "0"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateToleratesSubCentRounding(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000.004")

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("10000", "0", "0"),
	})
	require.NoError(t, err)
}

func TestCreateRejectsAllocationChannelMismatch(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "0")

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReadingIDs:   []uuid.UUID{r.ID},
		Payment:      payment("7000", "0", "3000"),
		CreditAllocs: []model.CreditAllocation{{CreditorID: c.ID, Amount: money.D("2000")}},
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCreateAppliesCreditAllocations(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "0")

	tx, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReadingIDs:   []uuid.UUID{r.ID},
		Payment:      payment("7000", "0", "3000"),
		CreditAllocs: []model.CreditAllocation{{CreditorID: c.ID, Amount: money.D("3000")}},
	})
	require.NoError(t, err)

	got := store.creditors[c.ID]
	require.True(t, got.CurrentBalance.Equal(money.D("3000")))
	require.Len(t, store.ledger, 1)
	require.Equal(t, model.CreditTypeCredit, store.ledger[0].Type)
	require.Equal(t, &tx.ID, store.ledger[0].TransactionID)
}

func TestCreateRefusesOverLimitAllocation(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "2000")

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReadingIDs:   []uuid.UUID{r.ID},
		Payment:      payment("7000", "0", "3000"),
		CreditAllocs: []model.CreditAllocation{{CreditorID: c.ID, Amount: money.D("3000")}},
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeCreditLimitExceeded, apperr.CodeOf(err))
	require.Empty(t, store.ledger)
}

func TestCreateAccumulatesRepeatedCreditorAllocations(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "0")

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("6000", "0", "4000"),
		CreditAllocs: []model.CreditAllocation{
			{CreditorID: c.ID, Amount: money.D("2500")},
			{CreditorID: c.ID, Amount: money.D("1500")},
		},
	})
	require.NoError(t, err)

	// Both allocations land on one creditor row summing the full 4000.
	got := store.creditors[c.ID]
	require.True(t, got.CurrentBalance.Equal(money.D("4000")))
	require.Len(t, store.ledger, 2)
}

func TestCreateRefusesAllocationsSummingOverLimit(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "3000")

	// Each allocation alone fits the 3000 limit; together they exceed it.
	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("6000", "0", "4000"),
		CreditAllocs: []model.CreditAllocation{
			{CreditorID: c.ID, Amount: money.D("2500")},
			{CreditorID: c.ID, Amount: money.D("1500")},
		},
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeCreditLimitExceeded, apperr.CodeOf(err))
	require.Empty(t, store.ledger)
	require.True(t, store.creditors[c.ID].CurrentBalance.IsZero())
}

func TestCreateRejectsReadingAlreadyInTransaction(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	other := uuid.New()
	r.TransactionID = &other

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("10000", "0", "0"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestCreateRejectsSettledReading(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	r.FlowStatus = model.FlowSettled

	_, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:  stationID,
		Date:       model.MustDate("2026-03-10"),
		ReadingIDs: []uuid.UUID{r.ID},
		Payment:    payment("10000", "0", "0"),
	})
	require.Error(t, err)
	require.Equal(t, apperr.CodeSettlementLocked, apperr.CodeOf(err))
}

func TestUpdateKeepsCreditChannelImmutable(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "0")

	tx, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReadingIDs:   []uuid.UUID{r.ID},
		Payment:      payment("7000", "0", "3000"),
		CreditAllocs: []model.CreditAllocation{{CreditorID: c.ID, Amount: money.D("3000")}},
	})
	require.NoError(t, err)

	// Shifting cash to online is fine while credit stays put.
	ok := payment("6000", "1000", "3000")
	got, err := engine.Update(context.Background(), testActor(), tx.ID, UpdateInput{Payment: &ok})
	require.NoError(t, err)
	require.True(t, got.Payment.Online.Equal(money.D("1000")))

	bad := payment("7000", "1000", "2000")
	_, err = engine.Update(context.Background(), testActor(), tx.ID, UpdateInput{Payment: &bad})
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCancelReleasesReadingsAndCreditors(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	r := seedReading(store, stationID, "2026-03-10", "100", "10000")
	c := seedCreditor(store, stationID, "0")

	tx, err := engine.Create(context.Background(), testActor(), CreateInput{
		StationID:    stationID,
		Date:         model.MustDate("2026-03-10"),
		ReadingIDs:   []uuid.UUID{r.ID},
		Payment:      payment("7000", "0", "3000"),
		CreditAllocs: []model.CreditAllocation{{CreditorID: c.ID, Amount: money.D("3000")}},
	})
	require.NoError(t, err)

	cancelled, err := engine.Cancel(context.Background(), testActor(), tx.ID, "entered against the wrong day")
	require.NoError(t, err)
	require.Equal(t, model.TransactionCancelled, cancelled.Status)
	require.Nil(t, store.readings[r.ID].TransactionID)
	require.Equal(t, model.FlowUnsettled, store.readings[r.ID].FlowStatus)
	require.Empty(t, store.ledger)
	require.True(t, store.creditors[c.ID].CurrentBalance.IsZero())

	// Cancelled envelopes stay cancelled.
	_, err = engine.Cancel(context.Background(), testActor(), tx.ID, "again")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestSummarizeSkipsCancelled(t *testing.T) {
	store, engine := testEngine()
	stationID := uuid.New()
	store.transactions[uuid.New()] = &model.DailyTransaction{
		ID: uuid.New(), StationID: stationID, TransactionDate: model.MustDate("2026-03-09"),
		Status: model.TransactionSubmitted, TotalLitres: money.D("100"), TotalSaleValue: money.D("10000"),
		Payment: payment("8000", "2000", "0"),
	}
	store.transactions[uuid.New()] = &model.DailyTransaction{
		ID: uuid.New(), StationID: stationID, TransactionDate: model.MustDate("2026-03-10"),
		Status: model.TransactionCancelled, TotalLitres: money.D("50"), TotalSaleValue: money.D("5000"),
		Payment: payment("5000", "0", "0"),
	}

	s, err := engine.Summarize(context.Background(), testActor(), stationID, model.MustDate("2026-03-01"), model.MustDate("2026-03-31"))
	require.NoError(t, err)
	require.Equal(t, 1, s.Count)
	require.True(t, s.TotalSale.Equal(money.D("10000")))
	require.True(t, s.ByChannel.Online.Equal(money.D("2000")))
}

func TestListRejectsInvertedRange(t *testing.T) {
	_, engine := testEngine()
	_, err := engine.List(context.Background(), testActor(), uuid.New(), model.MustDate("2026-03-10"), model.MustDate("2026-03-01"))
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
