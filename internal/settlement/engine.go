// Package settlement implements the owner-side end-of-day reconciliation:
// expected versus actual cash, online, and credit, progressing
// draft -> final -> locked.
package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/keymutex"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
)

// Store is the persistence slice the settlement engine needs.
type Store interface {
	Settlement(ctx context.Context, id uuid.UUID) (*model.Settlement, error)
	ListSettlements(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Settlement, error)
	ReadingsByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.NozzleReading, error)
	// EndedShiftsOn feeds the employee-shortfall map.
	EndedShiftsOn(ctx context.Context, stationID uuid.UUID, date model.Date) ([]*model.Shift, error)
	UserName(ctx context.Context, id uuid.UUID) (string, error)

	// CreateSettlementTx persists the draft and stamps its readings with the
	// settlement id and flow status pending_settlement.
	CreateSettlementTx(ctx context.Context, s *model.Settlement, readingIDs []uuid.UUID, entry *model.AuditLog) error
	UpdateSettlementTx(ctx context.Context, s *model.Settlement, entry *model.AuditLog) error
	// FinalizeSettlementTx marks the settlement final, flips its readings to
	// settled, and marks the station's submitted transactions for the date
	// as settled — one database transaction.
	FinalizeSettlementTx(ctx context.Context, s *model.Settlement, entry *model.AuditLog) error
}

// Engine serializes settlements per (station, date): one reconciliation per
// station per day may be in flight at a time.
type Engine struct {
	store Store
	authz auth.Authorizer
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, locks: keymutex.New(), clock: clk}
}

func stationDateKey(stationID uuid.UUID, date model.Date) string {
	return fmt.Sprintf("%s|%s", stationID, date)
}

// CreateInput is the caller-supplied part of a draft settlement.
type CreateInput struct {
	StationID  uuid.UUID
	Date       model.Date
	ReadingIDs []uuid.UUID

	ReportedCash   decimal.Decimal
	ReportedOnline decimal.Decimal
	ReportedCredit decimal.Decimal
	ActualCash     decimal.Decimal
}

// CreateDraft opens a reconciliation. Expected cash derives from the linked
// readings' sale totals minus the non-cash channels; without readings it
// falls back to the reported cash figure.
func (e *Engine) CreateDraft(ctx context.Context, actor auth.Actor, in CreateInput) (*model.Settlement, error) {
	if in.Date.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "date is required")
	}
	if in.ReportedCash.IsNegative() || in.ReportedOnline.IsNegative() || in.ReportedCredit.IsNegative() || in.ActualCash.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "amounts cannot be negative")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(stationDateKey(in.StationID, in.Date))
	defer unlock()

	expected := money.Round2(in.ReportedCash)
	if len(in.ReadingIDs) > 0 {
		readings, err := e.store.ReadingsByIDs(ctx, in.ReadingIDs)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "load readings")
		}
		if len(readings) != len(in.ReadingIDs) {
			return nil, apperr.New(apperr.KindValidation, "one or more readings do not exist")
		}
		totalSales := decimal.Zero
		for _, r := range readings {
			if r.StationID != in.StationID {
				return nil, apperr.Newf(apperr.KindValidation, "reading %s belongs to another station", r.ID)
			}
			if !r.ReadingDate.Equal(in.Date) {
				return nil, apperr.Newf(apperr.KindValidation, "reading %s is dated %s, not %s", r.ID, r.ReadingDate, in.Date)
			}
			if r.IsSample {
				return nil, apperr.Newf(apperr.KindValidation, "reading %s is a sample", r.ID)
			}
			if r.SettlementID != nil {
				return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSettlementLocked,
					"reading %s already belongs to settlement %s", r.ID, *r.SettlementID)
			}
			totalSales = totalSales.Add(r.TotalAmount)
		}
		expected = money.Round2(totalSales.Sub(in.ReportedOnline).Sub(in.ReportedCredit))
	}

	now := e.clock.Now()
	shortfalls, err := e.shortfalls(ctx, in.StationID, in.Date)
	if err != nil {
		return nil, err
	}

	s := &model.Settlement{
		ID:        uuid.New(),
		StationID: in.StationID,
		Date:      in.Date,

		ExpectedCash: expected,
		ActualCash:   money.Round2(in.ActualCash),
		Variance:     money.Round2(in.ActualCash.Sub(expected)),

		ReportedCash:   money.Round2(in.ReportedCash),
		ReportedOnline: money.Round2(in.ReportedOnline),
		ReportedCredit: money.Round2(in.ReportedCredit),

		// Owner confirmation starts at the reported values; Update adjusts.
		ConfirmedOnline: money.Round2(in.ReportedOnline),
		ConfirmedCredit: money.Round2(in.ReportedCredit),
		OnlineVariance:  decimal.Zero,
		CreditVariance:  decimal.Zero,

		Status:     model.SettlementDraft,
		ReadingIDs: in.ReadingIDs,
		Shortfalls: shortfalls,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "settlement_drafted",
		EntityType: "settlement", EntityID: &s.ID,
		NewValues: map[string]any{
			"date":         in.Date.String(),
			"expectedCash": expected.String(),
			"actualCash":   s.ActualCash.String(),
			"variance":     s.Variance.String(),
			"readings":     len(in.ReadingIDs),
		},
		Category: model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreateSettlementTx(ctx, s, in.ReadingIDs, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create settlement")
	}
	return s, nil
}

// shortfalls sums negative cash differences of the day's ended shifts per
// employee.
func (e *Engine) shortfalls(ctx context.Context, stationID uuid.UUID, date model.Date) (map[string]model.EmployeeShortfall, error) {
	shifts, err := e.store.EndedShiftsOn(ctx, stationID, date)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load shifts")
	}
	out := make(map[string]model.EmployeeShortfall)
	for _, sh := range shifts {
		if !sh.CashDifference.IsNegative() {
			continue
		}
		key := sh.EmployeeID.String()
		cur, ok := out[key]
		if !ok {
			name, err := e.store.UserName(ctx, sh.EmployeeID)
			if err != nil {
				name = key
			}
			cur = model.EmployeeShortfall{Name: name, Shortfall: decimal.Zero}
		}
		cur.Shortfall = cur.Shortfall.Add(sh.CashDifference.Abs())
		cur.Count++
		out[key] = cur
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// UpdateInput carries owner-confirmed figures for an open draft.
type UpdateInput struct {
	ActualCash      *decimal.Decimal
	ConfirmedOnline *decimal.Decimal
	ConfirmedCredit *decimal.Decimal
}

// Update adjusts a draft's confirmed figures and recomputes variances.
// Final and locked settlements refuse with SETTLEMENT_LOCKED.
func (e *Engine) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateInput) (*model.Settlement, error) {
	s, err := e.store.Settlement(ctx, id)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "settlement not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}
	if s.Status != model.SettlementDraft {
		return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSettlementLocked,
			"settlement is %s and cannot be edited", s.Status)
	}

	unlock := e.locks.Lock(stationDateKey(s.StationID, s.Date))
	defer unlock()

	updated := *s
	if in.ActualCash != nil {
		if in.ActualCash.IsNegative() {
			return nil, apperr.New(apperr.KindValidation, "actualCash cannot be negative")
		}
		updated.ActualCash = money.Round2(*in.ActualCash)
	}
	if in.ConfirmedOnline != nil {
		updated.ConfirmedOnline = money.Round2(*in.ConfirmedOnline)
	}
	if in.ConfirmedCredit != nil {
		updated.ConfirmedCredit = money.Round2(*in.ConfirmedCredit)
	}
	updated.Variance = updated.ActualCash.Sub(updated.ExpectedCash)
	updated.OnlineVariance = updated.ConfirmedOnline.Sub(updated.ReportedOnline)
	updated.CreditVariance = updated.ConfirmedCredit.Sub(updated.ReportedCredit)

	now := e.clock.Now()
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.StationID, Action: "settlement_updated",
		EntityType: "settlement", EntityID: &s.ID,
		OldValues: map[string]any{"actualCash": s.ActualCash.String(), "variance": s.Variance.String()},
		NewValues: map[string]any{"actualCash": updated.ActualCash.String(), "variance": updated.Variance.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.UpdateSettlementTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update settlement")
	}
	return &updated, nil
}

// Finalize moves draft -> final: linked readings freeze as settled and the
// day's submitted transactions become settled.
func (e *Engine) Finalize(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Settlement, error) {
	s, err := e.store.Settlement(ctx, id)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "settlement not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}
	if s.Status != model.SettlementDraft {
		return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSettlementLocked,
			"settlement is %s, not draft", s.Status)
	}

	unlock := e.locks.Lock(stationDateKey(s.StationID, s.Date))
	defer unlock()

	now := e.clock.Now()
	updated := *s
	updated.Status = model.SettlementFinal
	finalizedAt := now
	updated.FinalizedAt = &finalizedAt
	finalizedBy := actor.User.ID
	updated.FinalizedBy = &finalizedBy
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.StationID, Action: "settlement_finalized",
		EntityType: "settlement", EntityID: &s.ID,
		OldValues: map[string]any{"status": string(model.SettlementDraft)},
		NewValues: map[string]any{"status": string(model.SettlementFinal), "variance": s.Variance.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.FinalizeSettlementTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "finalize settlement")
	}
	return &updated, nil
}

// Lock moves final -> locked. Locked is terminal.
func (e *Engine) Lock(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Settlement, error) {
	s, err := e.store.Settlement(ctx, id)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "settlement not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}
	if s.Status != model.SettlementFinal {
		return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSettlementLocked,
			"settlement is %s, not final", s.Status)
	}

	now := e.clock.Now()
	updated := *s
	updated.Status = model.SettlementLocked
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.StationID, Action: "settlement_locked",
		EntityType: "settlement", EntityID: &s.ID,
		OldValues: map[string]any{"status": string(model.SettlementFinal)},
		NewValues: map[string]any{"status": string(model.SettlementLocked)},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.UpdateSettlementTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "lock settlement")
	}
	return &updated, nil
}

// Get returns one settlement after a scope check.
func (e *Engine) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Settlement, error) {
	s, err := e.store.Settlement(ctx, id)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "settlement not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a station's settlements in a date window.
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) ([]*model.Settlement, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListSettlements(ctx, stationID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list settlements")
	}
	return rows, nil
}
