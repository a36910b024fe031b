// Package shift manages employee work intervals. Ending a shift aggregates
// the employee's readings and seeds the first hop of the cash-handover
// chain.
package shift

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

// Store is the persistence slice the shift engine needs.
type Store interface {
	Shift(ctx context.Context, id uuid.UUID) (*model.Shift, error)
	ActiveShift(ctx context.Context, employeeID uuid.UUID) (*model.Shift, error)
	ListShifts(ctx context.Context, stationID uuid.UUID, from, to model.Date) ([]*model.Shift, error)
	// ReadingsForShift returns the employee's readings recorded while the
	// shift was active.
	ReadingsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.NozzleReading, error)
	// StationManager resolves who receives the shift-collection handover.
	StationManager(ctx context.Context, stationID uuid.UUID) (*model.User, error)

	CreateShiftTx(ctx context.Context, s *model.Shift, entry *model.AuditLog) error
	// EndShiftTx persists the aggregated shift, stamps its readings with the
	// shift id, and writes the audit row in one database transaction.
	EndShiftTx(ctx context.Context, s *model.Shift, readingIDs []uuid.UUID, entry *model.AuditLog) error
	UpdateShiftTx(ctx context.Context, s *model.Shift, entry *model.AuditLog) error
}

// Handovers is the slice of the handover engine the shift engine uses to
// seed the shift_collection hop at shift end.
type Handovers interface {
	CreateFromShift(ctx context.Context, actor auth.Actor, shift *model.Shift, managerID uuid.UUID) (*model.CashHandover, error)
}

// Engine serializes lifecycle changes per employee so one employee cannot
// hold two active shifts.
type Engine struct {
	store     Store
	authz     auth.Authorizer
	handovers Handovers
	locks     *keymutex.KeyedMutex
	clock     clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, handovers Handovers, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, handovers: handovers, locks: keymutex.New(), clock: clk}
}

// StartInput is the caller-supplied part of a new shift.
type StartInput struct {
	StationID   uuid.UUID
	EmployeeID  uuid.UUID
	Date        model.Date
	StartTime   string
	ShiftType   string
	OpeningCash decimal.Decimal
	Notes       string
}

// Start opens a shift. Fails with SHIFT_ACTIVE when the employee already has
// one running.
func (e *Engine) Start(ctx context.Context, actor auth.Actor, in StartInput) (*model.Shift, error) {
	if in.StartTime != "" && !model.ValidTimeOfDay(in.StartTime) {
		return nil, apperr.New(apperr.KindValidation, "startTime must be HH:MM:SS")
	}
	if in.OpeningCash.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "openingCash cannot be negative")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(in.EmployeeID.String())
	defer unlock()

	if active, err := e.store.ActiveShift(ctx, in.EmployeeID); err == nil && active != nil {
		return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeShiftActive,
			"employee already has an active shift started %s %s", active.Date, active.StartTime)
	}

	now := e.clock.Now()
	if in.Date.IsZero() {
		in.Date = model.DateOf(now)
	}
	if in.StartTime == "" {
		in.StartTime = now.Format(model.TimeLayout)
	}

	s := &model.Shift{
		ID:          uuid.New(),
		StationID:   in.StationID,
		EmployeeID:  in.EmployeeID,
		Date:        in.Date,
		StartTime:   in.StartTime,
		ShiftType:   in.ShiftType,
		OpeningCash: money.Round2(in.OpeningCash),
		Status:      model.ShiftActive,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "shift_started",
		EntityType: "shift", EntityID: &s.ID,
		NewValues: map[string]any{"employeeId": in.EmployeeID.String(), "openingCash": s.OpeningCash.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreateShiftTx(ctx, s, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "start shift")
	}
	return s, nil
}

// EndInput is the employee's declared collections at shift end.
// CreditGiven is the slice of the shift's sales handed out on credit; it
// never reaches the cash drawer.
type EndInput struct {
	ShiftID         uuid.UUID
	EndTime         string
	CashCollected   decimal.Decimal
	OnlineCollected decimal.Decimal
	CreditGiven     decimal.Decimal
	Notes           string
}

// End closes the shift: readings recorded by the employee on the shift date
// are aggregated, expected cash is derived, and a shift_collection handover
// is seeded toward the station manager.
func (e *Engine) End(ctx context.Context, actor auth.Actor, in EndInput) (*model.Shift, *model.CashHandover, error) {
	if in.EndTime != "" && !model.ValidTimeOfDay(in.EndTime) {
		return nil, nil, apperr.New(apperr.KindValidation, "endTime must be HH:MM:SS")
	}
	if in.CashCollected.IsNegative() || in.OnlineCollected.IsNegative() || in.CreditGiven.IsNegative() {
		return nil, nil, apperr.New(apperr.KindValidation, "collected amounts cannot be negative")
	}

	s, err := e.store.Shift(ctx, in.ShiftID)
	if err != nil || s == nil {
		return nil, nil, apperr.Wrap(apperr.KindNotFound, err, "shift not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, nil, err
	}

	unlock := e.locks.Lock(s.EmployeeID.String())
	defer unlock()

	if s.Status != model.ShiftActive {
		return nil, nil, apperr.Newf(apperr.KindConflict, "shift is %s, not active", s.Status)
	}

	readings, err := e.store.ReadingsForShift(ctx, s.ID)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "load shift readings")
	}

	now := e.clock.Now()
	totalLitres := decimal.Zero
	totalSales := decimal.Zero
	readingIDs := make([]uuid.UUID, 0, len(readings))
	for _, r := range readings {
		readingIDs = append(readingIDs, r.ID)
		totalLitres = totalLitres.Add(r.LitresSold)
		totalSales = totalSales.Add(r.TotalAmount)
	}

	ended := *s
	ended.EndTime = in.EndTime
	if ended.EndTime == "" {
		ended.EndTime = now.Format(model.TimeLayout)
	}
	ended.CashCollected = money.Round2(in.CashCollected)
	ended.OnlineCollected = money.Round2(in.OnlineCollected)
	ended.CreditGiven = money.Round2(in.CreditGiven)
	ended.ReadingsCount = len(readings)
	ended.TotalLitresSold = money.Round3(totalLitres)
	ended.TotalSalesAmount = money.Round2(totalSales)
	// Expected cash is sales minus the online and credit channels, plus
	// the float the employee started with.
	ended.ExpectedCash = money.Round2(totalSales.Sub(ended.OnlineCollected).Sub(ended.CreditGiven).Add(s.OpeningCash))
	ended.CashDifference = ended.CashCollected.Sub(ended.ExpectedCash)
	ended.Status = model.ShiftEnded
	endedBy := actor.User.ID
	ended.EndedBy = &endedBy
	if in.Notes != "" {
		ended.Notes = in.Notes
	}
	ended.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.StationID, Action: "shift_ended",
		EntityType: "shift", EntityID: &s.ID,
		OldValues: map[string]any{"status": string(model.ShiftActive)},
		NewValues: map[string]any{
			"status":         string(model.ShiftEnded),
			"readings":       len(readings),
			"expectedCash":   ended.ExpectedCash.String(),
			"cashCollected":  ended.CashCollected.String(),
			"cashDifference": ended.CashDifference.String(),
		},
		Category: model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.EndShiftTx(ctx, &ended, readingIDs, entry); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindInternal, err, "end shift")
	}

	manager, err := e.store.StationManager(ctx, s.StationID)
	if err != nil || manager == nil {
		// No manager on file: the shift still ends; the collection hop is
		// created manually later.
		return &ended, nil, nil
	}
	h, err := e.handovers.CreateFromShift(ctx, actor, &ended, manager.ID)
	if err != nil {
		return &ended, nil, apperr.Wrap(apperr.KindInternal, err,
			fmt.Sprintf("shift ended but handover seeding failed for manager %s", manager.ID))
	}
	return &ended, h, nil
}

// Cancel voids an active shift without aggregation.
func (e *Engine) Cancel(ctx context.Context, actor auth.Actor, shiftID uuid.UUID, reason string) (*model.Shift, error) {
	s, err := e.store.Shift(ctx, shiftID)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "shift not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(s.EmployeeID.String())
	defer unlock()

	if s.Status != model.ShiftActive {
		return nil, apperr.Newf(apperr.KindConflict, "shift is %s, not active", s.Status)
	}

	now := e.clock.Now()
	cancelled := *s
	cancelled.Status = model.ShiftCancelled
	if reason != "" {
		cancelled.Notes = reason
	}
	endedBy := actor.User.ID
	cancelled.EndedBy = &endedBy
	cancelled.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.StationID, Action: "shift_cancelled",
		EntityType: "shift", EntityID: &s.ID,
		OldValues: map[string]any{"status": string(model.ShiftActive)},
		NewValues: map[string]any{"status": string(model.ShiftCancelled), "reason": reason},
		Category:  model.CategoryData, Severity: model.SeverityWarning, Success: true,
	}.Build(now)

	if err := e.store.UpdateShiftTx(ctx, &cancelled, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "cancel shift")
	}
	return &cancelled, nil
}

// Active returns the employee's running shift, or NOT_FOUND.
func (e *Engine) Active(ctx context.Context, actor auth.Actor, employeeID uuid.UUID) (*model.Shift, error) {
	s, err := e.store.ActiveShift(ctx, employeeID)
	if err != nil || s == nil {
		return nil, apperr.New(apperr.KindNotFound, "no active shift")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.StationID); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a station's shifts in a date window.
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) ([]*model.Shift, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	rows, err := e.store.ListShifts(ctx, stationID, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list shifts")
	}
	return rows, nil
}
