// Package handover implements the cash-handover chain: shift collection →
// employee → manager → owner → bank, with per-hop confirmation, variance
// detection, and dispute handling.
package handover

import (
	"context"

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

// Variance thresholds: a confirmation whose absolute difference exceeds
// either one opens a dispute instead of confirming.
var (
	disputeAbsolute = decimal.NewFromInt(100)
	disputePercent  = decimal.NewFromInt(2)
)

// Store is the persistence slice the handover engine needs.
type Store interface {
	Handover(ctx context.Context, id uuid.UUID) (*model.CashHandover, error)
	// LatestConfirmed finds the newest confirmed-or-resolved handover of the
	// given type at the station, optionally restricted to a from-user.
	LatestConfirmed(ctx context.Context, stationID uuid.UUID, typ model.HandoverType, fromUserID *uuid.UUID) (*model.CashHandover, error)
	ListHandovers(ctx context.Context, f ListFilter) ([]*model.CashHandover, error)

	CreateHandoverTx(ctx context.Context, h *model.CashHandover, entry *model.AuditLog) error
	UpdateHandoverTx(ctx context.Context, h *model.CashHandover, entry *model.AuditLog) error
}

// ListFilter narrows handover queries.
type ListFilter struct {
	StationID uuid.UUID
	Type      *model.HandoverType
	Status    *model.HandoverStatus
	ToUserID  *uuid.UUID
	From      *model.Date
	To        *model.Date
}

// Engine serializes sequence validation and insert per station so two
// concurrent creates cannot both chain off the same predecessor lookup.
type Engine struct {
	store Store
	authz auth.Authorizer
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, locks: keymutex.New(), clock: clk}
}

// CreateInput is the caller-supplied part of a handover.
type CreateInput struct {
	StationID          uuid.UUID
	Type               model.HandoverType
	Date               model.Date
	FromUserID         *uuid.UUID
	ToUserID           *uuid.UUID
	ExpectedAmount     decimal.Decimal
	PreviousHandoverID *uuid.UUID
	ShiftID            *uuid.UUID
	BankName           string
	DepositReference   string
	Notes              string
}

// validateSequence checks that the required predecessor hop exists and is
// confirmed. shift_collection has no predecessor; employee_to_manager must
// follow a confirmed shift_collection by the same from-user.
func (e *Engine) validateSequence(ctx context.Context, in CreateInput) (*model.CashHandover, error) {
	required := in.Type.RequiredPredecessor()
	if required == "" {
		return nil, nil
	}

	if in.PreviousHandoverID != nil {
		prev, err := e.store.Handover(ctx, *in.PreviousHandoverID)
		if err != nil || prev == nil {
			return nil, apperr.Coded(apperr.KindConflict, apperr.CodeSequenceViolation, "previous handover not found")
		}
		if prev.StationID != in.StationID || prev.Type != required {
			return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSequenceViolation,
				"previous handover must be a %s at the same station", required)
		}
		if prev.Status != model.HandoverConfirmed && prev.Status != model.HandoverResolved {
			return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSequenceViolation,
				"previous handover is %s, not confirmed", prev.Status)
		}
		return prev, nil
	}

	var fromUser *uuid.UUID
	if required == model.HandoverShiftCollection {
		fromUser = in.FromUserID
	}
	prev, err := e.store.LatestConfirmed(ctx, in.StationID, required, fromUser)
	if err != nil || prev == nil {
		return nil, apperr.Codedf(apperr.KindConflict, apperr.CodeSequenceViolation,
			"no confirmed %s precedes this %s", required, in.Type)
	}
	return prev, nil
}

// Create records a pending handover after sequence validation.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.CashHandover, error) {
	switch in.Type {
	case model.HandoverShiftCollection, model.HandoverEmployeeToManager,
		model.HandoverManagerToOwner, model.HandoverDepositToBank:
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown handover type %q", in.Type)
	}
	if in.ExpectedAmount.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "expectedAmount cannot be negative")
	}
	if in.Type == model.HandoverDepositToBank {
		if in.BankName == "" || in.DepositReference == "" {
			return nil, apperr.New(apperr.KindValidation, "bankName and depositReference are required for bank deposits")
		}
	} else if in.FromUserID == nil || in.ToUserID == nil {
		return nil, apperr.New(apperr.KindValidation, "fromUserId and toUserId are required")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(in.StationID.String())
	defer unlock()

	prev, err := e.validateSequence(ctx, in)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if in.Date.IsZero() {
		in.Date = model.DateOf(now)
	}
	h := &model.CashHandover{
		ID:               uuid.New(),
		StationID:        in.StationID,
		Type:             in.Type,
		Date:             in.Date,
		FromUserID:       in.FromUserID,
		ToUserID:         in.ToUserID,
		ExpectedAmount:   money.Round2(in.ExpectedAmount),
		ShiftID:          in.ShiftID,
		Status:           model.HandoverPending,
		BankName:         in.BankName,
		DepositReference: in.DepositReference,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if prev != nil {
		prevID := prev.ID
		h.PreviousHandoverID = &prevID
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "handover_created",
		EntityType: "cash_handover", EntityID: &h.ID,
		NewValues: map[string]any{"type": string(in.Type), "expectedAmount": h.ExpectedAmount.String()},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreateHandoverTx(ctx, h, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create handover")
	}
	return h, nil
}

// CreateFromShift seeds the shift_collection hop at shift end. Expected
// amount is the shift's expected cash, falling back to cash collected.
func (e *Engine) CreateFromShift(ctx context.Context, actor auth.Actor, shift *model.Shift, managerID uuid.UUID) (*model.CashHandover, error) {
	expected := shift.ExpectedCash
	if expected.IsZero() {
		expected = shift.CashCollected
	}
	empID := shift.EmployeeID
	shiftID := shift.ID
	return e.Create(ctx, actor, CreateInput{
		StationID:      shift.StationID,
		Type:           model.HandoverShiftCollection,
		Date:           shift.Date,
		FromUserID:     &empID,
		ToUserID:       &managerID,
		ExpectedAmount: expected,
		ShiftID:        &shiftID,
	})
}

// Confirm records the counted amount. Large variances open a dispute
// instead of confirming: |difference| > 100 or more than 2% of expected.
func (e *Engine) Confirm(ctx context.Context, actor auth.Actor, handoverID uuid.UUID, actualAmount decimal.Decimal, notes string) (*model.CashHandover, error) {
	if actualAmount.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "actualAmount cannot be negative")
	}

	h, err := e.store.Handover(ctx, handoverID)
	if err != nil || h == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "handover not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, h.StationID); err != nil {
		return nil, err
	}
	if h.Status != model.HandoverPending {
		return nil, apperr.Newf(apperr.KindConflict, "handover is %s, not pending", h.Status)
	}
	if h.Type == model.HandoverDepositToBank && (h.BankName == "" || h.DepositReference == "") {
		return nil, apperr.New(apperr.KindValidation, "bank deposit needs bankName and depositReference before confirmation")
	}

	now := e.clock.Now()
	actual := money.Round2(actualAmount)
	diff := actual.Sub(h.ExpectedAmount)
	pct := decimal.Zero
	if h.ExpectedAmount.IsPositive() {
		pct = diff.Abs().Div(h.ExpectedAmount).Mul(decimal.NewFromInt(100))
	}

	updated := *h
	updated.ActualAmount = actual
	updated.Difference = diff
	confirmedBy := actor.User.ID
	updated.ConfirmedBy = &confirmedBy
	confirmedAt := now
	updated.ConfirmedAt = &confirmedAt
	updated.UpdatedAt = now
	if notes != "" {
		updated.Notes = notes
	}

	disputed := diff.Abs().GreaterThan(disputeAbsolute) || pct.GreaterThan(disputePercent)
	if disputed {
		updated.Status = model.HandoverDisputed
		updated.DisputeNotes = "amount variance " + diff.StringFixed(2) + " (" + pct.StringFixed(1) + "%) exceeds threshold"
	} else {
		updated.Status = model.HandoverConfirmed
	}

	severity := model.SeverityInfo
	if disputed {
		severity = model.SeverityWarning
	}
	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &h.StationID, Action: "handover_confirmed",
		EntityType: "cash_handover", EntityID: &h.ID,
		OldValues: map[string]any{"status": string(h.Status)},
		NewValues: map[string]any{
			"status":     string(updated.Status),
			"expected":   h.ExpectedAmount.String(),
			"actual":     actual.String(),
			"difference": diff.String(),
		},
		Category: model.CategoryFinance, Severity: severity, Success: true,
	}.Build(now)

	if err := e.store.UpdateHandoverTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "confirm handover")
	}
	return &updated, nil
}

// ResolveDispute closes a disputed handover with a resolution note.
func (e *Engine) ResolveDispute(ctx context.Context, actor auth.Actor, handoverID uuid.UUID, resolutionNotes string) (*model.CashHandover, error) {
	if resolutionNotes == "" {
		return nil, apperr.New(apperr.KindValidation, "resolutionNotes is required")
	}

	h, err := e.store.Handover(ctx, handoverID)
	if err != nil || h == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "handover not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, h.StationID); err != nil {
		return nil, err
	}
	if h.Status != model.HandoverDisputed {
		return nil, apperr.Newf(apperr.KindConflict, "handover is %s, not disputed", h.Status)
	}

	now := e.clock.Now()
	updated := *h
	updated.Status = model.HandoverResolved
	updated.ResolutionNotes = resolutionNotes
	resolvedBy := actor.User.ID
	updated.ResolvedBy = &resolvedBy
	resolvedAt := now
	updated.ResolvedAt = &resolvedAt
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &h.StationID, Action: "handover_dispute_resolved",
		EntityType: "cash_handover", EntityID: &h.ID,
		OldValues: map[string]any{"status": string(model.HandoverDisputed)},
		NewValues: map[string]any{"status": string(model.HandoverResolved), "resolutionNotes": resolutionNotes},
		Category:  model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.UpdateHandoverTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "resolve handover dispute")
	}
	return &updated, nil
}

// PendingForUser lists handovers awaiting the given user's confirmation.
func (e *Engine) PendingForUser(ctx context.Context, actor auth.Actor, stationID, userID uuid.UUID) ([]*model.CashHandover, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	pending := model.HandoverPending
	return e.list(ctx, ListFilter{StationID: stationID, Status: &pending, ToUserID: &userID})
}

// Unconfirmed lists pending and disputed handovers in a date window.
func (e *Engine) Unconfirmed(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) ([]*model.CashHandover, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	all, err := e.list(ctx, ListFilter{StationID: stationID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, h := range all {
		if h.Status == model.HandoverPending || h.Status == model.HandoverDisputed {
			out = append(out, h)
		}
	}
	return out, nil
}

// BankDeposits lists deposit_to_bank handovers in a date window.
func (e *Engine) BankDeposits(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) ([]*model.CashHandover, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	deposit := model.HandoverDepositToBank
	return e.list(ctx, ListFilter{StationID: stationID, Type: &deposit, From: &from, To: &to})
}

func (e *Engine) list(ctx context.Context, f ListFilter) ([]*model.CashHandover, error) {
	rows, err := e.store.ListHandovers(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list handovers")
	}
	return rows, nil
}

// TypeSummary is the per-type slice of a cash-flow summary.
type TypeSummary struct {
	Count    int             `json:"count"`
	Expected decimal.Decimal `json:"expectedTotal"`
	Actual   decimal.Decimal `json:"actualTotal"`
}

// FlowSummary aggregates handovers by type plus attention counters.
type FlowSummary struct {
	ByType   map[model.HandoverType]*TypeSummary `json:"byType"`
	Pending  int                                 `json:"pendingCount"`
	Disputed int                                 `json:"disputedCount"`
}

// CashFlowSummary sums a station's handovers over a date window.
func (e *Engine) CashFlowSummary(ctx context.Context, actor auth.Actor, stationID uuid.UUID, from, to model.Date) (*FlowSummary, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	rows, err := e.list(ctx, ListFilter{StationID: stationID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	s := &FlowSummary{ByType: make(map[model.HandoverType]*TypeSummary)}
	for _, h := range rows {
		t, ok := s.ByType[h.Type]
		if !ok {
			t = &TypeSummary{Expected: decimal.Zero, Actual: decimal.Zero}
			s.ByType[h.Type] = t
		}
		t.Count++
		t.Expected = t.Expected.Add(h.ExpectedAmount)
		t.Actual = t.Actual.Add(h.ActualAmount)
		switch h.Status {
		case model.HandoverPending:
			s.Pending++
		case model.HandoverDisputed:
			s.Disputed++
		}
	}
	return s, nil
}

// Get returns one handover after a scope check.
func (e *Engine) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.CashHandover, error) {
	h, err := e.store.Handover(ctx, id)
	if err != nil || h == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "handover not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, h.StationID); err != nil {
		return nil, err
	}
	return h, nil
}
