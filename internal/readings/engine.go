// Package readings derives sales from cumulative meter readings. A reading
// is a monotone counter snapshot; the sale is the difference from its
// predecessor, priced by the fuel price effective on the reading date.
package readings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/keymutex"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/quota"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/tank"
)

// Filter narrows reading list queries.
type Filter struct {
	StationID uuid.UUID
	NozzleID  *uuid.UUID
	PumpID    *uuid.UUID
	From      *model.Date
	To        *model.Date
	Status    *model.ApprovalStatus
	Page      int
	Limit     int
}

// Store is the persistence slice the reading engine needs. CreateReadingTx
// and SetApprovalTx run all their rows, audit included, in one database
// transaction.
type Store interface {
	Nozzle(ctx context.Context, id uuid.UUID) (*model.Nozzle, error)
	Station(ctx context.Context, id uuid.UUID) (*model.Station, error)
	Reading(ctx context.Context, id uuid.UUID) (*model.NozzleReading, error)

	// LatestBefore returns the newest reading for the nozzle strictly
	// before (date, createdBefore): readingDate < date, or the same date
	// with an earlier creation instant. Nil when none exists.
	LatestBefore(ctx context.Context, nozzleID uuid.UUID, date model.Date, createdBefore time.Time) (*model.NozzleReading, error)
	// FindDuplicate returns an existing reading with the same nozzle,
	// date, time, and value, or nil.
	FindDuplicate(ctx context.Context, nozzleID uuid.UUID, date model.Date, timeOfDay string, value decimal.Decimal) (*model.NozzleReading, error)
	// ApprovedOn returns the nozzle's approved non-sample reading for the
	// date, or nil.
	ApprovedOn(ctx context.Context, nozzleID uuid.UUID, date model.Date) (*model.NozzleReading, error)
	// PriceOn returns the fuel price with the latest effectiveFrom on or
	// before date, or nil.
	PriceOn(ctx context.Context, stationID uuid.UUID, fuel model.FuelType, date model.Date) (*model.FuelPrice, error)
	// TankForFuel returns the station's tank for the fuel, or nil.
	TankForFuel(ctx context.Context, stationID uuid.UUID, fuel model.FuelType) (*model.Tank, error)

	CreateReadingTx(ctx context.Context, r *model.NozzleReading, nozzle *model.Nozzle, tnk *model.Tank, entry *model.AuditLog) error
	SetApprovalTx(ctx context.Context, r *model.NozzleReading, tnk *model.Tank, entry *model.AuditLog) error

	ListReadings(ctx context.Context, f Filter) ([]*model.NozzleReading, int, error)
}

// Plans is the slice of the quota engine the readings engine uses.
type Plans interface {
	PlanForStation(ctx context.Context, stationID uuid.UUID) (*model.Plan, error)
	CheckMonthly(ctx context.Context, stationID uuid.UUID, kind quota.Kind) error
	RecordMonthly(ctx context.Context, stationID uuid.UUID, kind quota.Kind) error
}

// Engine creates and reviews readings. Creation is serialized per nozzle so
// the previous-reading lookup and the insert are linearizable.
type Engine struct {
	store Store
	authz auth.Authorizer
	plans Plans
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, plans Plans, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, plans: plans, locks: keymutex.New(), clock: clk}
}

// CreateInput is one meter entry.
type CreateInput struct {
	NozzleID     uuid.UUID
	ReadingDate  model.Date
	ReadingTime  string // HH:MM:SS, optional
	ReadingValue decimal.Decimal
	ShiftID      *uuid.UUID
	Notes        string
	IsSample     bool
	// IsInitialReading is accepted only to be forced false; attempts are
	// audited at warning severity.
	IsInitialReading bool
	Source           model.ReadingSource
}

// Create converts a cumulative meter entry into a sale record. Identical
// inputs (nozzle, date, time, value) return the already-persisted reading.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.NozzleReading, error) {
	if in.ReadingValue.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "readingValue must be >= 0")
	}
	if in.ReadingTime != "" && !model.ValidTimeOfDay(in.ReadingTime) {
		return nil, apperr.New(apperr.KindValidation, "readingTime must be HH:MM:SS")
	}
	if in.Source == "" {
		in.Source = model.SourceManual
	}

	nozzle, err := e.store.Nozzle(ctx, in.NozzleID)
	if err != nil || nozzle == nil {
		return nil, apperr.Coded(apperr.KindNotFound, apperr.CodeNozzleNotFound, "nozzle not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, nozzle.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	today := model.DateOf(now)
	if in.ReadingDate.After(today) {
		return nil, apperr.Coded(apperr.KindValidation, apperr.CodeFutureDate, "reading date is in the future")
	}

	plan, err := e.plans.PlanForStation(ctx, nozzle.StationID)
	if err != nil {
		return nil, err
	}
	if plan.BackdatedDays >= 0 && in.ReadingDate.Before(today.AddDays(-plan.BackdatedDays)) {
		return nil, apperr.Codedf(apperr.KindValidation, apperr.CodeBackdatedExceeded,
			"reading date older than the %d-day backdating window", plan.BackdatedDays)
	}

	station, err := e.store.Station(ctx, nozzle.StationID)
	if err != nil || station == nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "load station")
	}
	if station.ShiftRequiredForReading && in.ShiftID == nil {
		return nil, apperr.New(apperr.KindValidation, "station requires an open shift for readings")
	}

	if in.Source == model.SourceManual {
		if err := e.plans.CheckMonthly(ctx, nozzle.StationID, quota.KindManualEntries); err != nil {
			return nil, err
		}
	}

	unlock := e.locks.Lock(nozzle.ID.String())
	defer unlock()

	// Idempotency: the same physical entry submitted twice returns the
	// first row.
	if dup, err := e.store.FindDuplicate(ctx, nozzle.ID, in.ReadingDate, in.ReadingTime, in.ReadingValue); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "duplicate lookup")
	} else if dup != nil {
		return dup, nil
	}

	price, err := e.store.PriceOn(ctx, nozzle.StationID, nozzle.FuelType, in.ReadingDate)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "price lookup")
	}
	if price == nil {
		return nil, apperr.Newf(apperr.KindNoPrice,
			"no %s price effective on %s", nozzle.FuelType, in.ReadingDate)
	}

	prev, err := e.store.LatestBefore(ctx, nozzle.ID, in.ReadingDate, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "previous reading lookup")
	}

	reading := &model.NozzleReading{
		ID:             uuid.New(),
		NozzleID:       nozzle.ID,
		StationID:      nozzle.StationID,
		PumpID:         nozzle.PumpID,
		FuelType:       nozzle.FuelType,
		EnteredBy:      actor.User.ID,
		ReadingDate:    in.ReadingDate,
		ReadingTime:    in.ReadingTime,
		ReadingValue:   money.Round3(in.ReadingValue),
		PricePerLitre:  price.SellingPrice,
		IsSample:       in.IsSample,
		ApprovalStatus: model.ApprovalPending,
		ShiftID:        in.ShiftID,
		FlowStatus:     model.FlowUnsettled,
		Source:         in.Source,
		Notes:          in.Notes,
		CreatedAt:      now,
	}

	var baseline *decimal.Decimal
	switch {
	case prev != nil:
		id := prev.ID
		v := prev.ReadingValue
		reading.PreviousReadingID = &id
		reading.PreviousReadingValue = &v
		baseline = &v
	case nozzle.InitialReading != nil:
		v := *nozzle.InitialReading
		reading.PreviousReadingValue = &v
		baseline = &v
	default:
		// First reading of the nozzle with no initial meter value: it
		// establishes the baseline and sells nothing.
	}

	litres := decimal.Zero
	if baseline != nil {
		raw := reading.ReadingValue.Sub(*baseline)
		if raw.IsNegative() {
			reading.Warnings = append(reading.Warnings, model.WarningMeterReset)
		} else {
			litres = raw
		}
	}
	if in.IsSample {
		// The meter advanced without a sale; the value still becomes the
		// next baseline.
		litres = decimal.Zero
	}
	reading.LitresSold = money.Round3(litres)
	reading.TotalAmount = money.Round2(reading.LitresSold.Mul(reading.PricePerLitre))

	// Tank decrement applies only to real sales.
	var updatedTank *model.Tank
	if !in.IsSample && reading.LitresSold.IsPositive() {
		tnk, err := e.store.TankForFuel(ctx, nozzle.StationID, nozzle.FuelType)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "tank lookup")
		}
		if tnk != nil && tnk.TrackingMode != model.TrackingDisabled {
			warnings, err := tank.CanDispense(tnk, reading.LitresSold)
			if err != nil {
				return nil, err
			}
			reading.Warnings = append(reading.Warnings, warnings...)
			t := *tnk
			t.CurrentLevel = t.CurrentLevel.Sub(reading.LitresSold)
			t.UpdatedAt = now
			updatedTank = &t
		}
	}

	severity := model.SeverityInfo
	desc := ""
	if in.IsInitialReading {
		// Sales readings never carry isInitialReading; the attempt is
		// recorded, the flag is not.
		severity = model.SeverityWarning
		desc = "isInitialReading attempt rewritten to false"
	}
	reading.IsInitialReading = false

	cache := *nozzle
	if nozzle.LastReadingAt == nil || !in.ReadingDate.Before(*nozzle.LastReadingAt) {
		v := reading.ReadingValue
		d := in.ReadingDate
		cache.LastReading = &v
		cache.LastReadingAt = &d
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &nozzle.StationID, Action: "reading_created",
		EntityType: "nozzle_reading", EntityID: &reading.ID,
		NewValues: map[string]any{
			"readingValue": reading.ReadingValue.String(),
			"litresSold":   reading.LitresSold.String(),
			"totalAmount":  reading.TotalAmount.String(),
			"isSample":     reading.IsSample,
		},
		Category: model.CategoryData, Severity: severity, Desc: desc, Success: true,
	}.Build(now)

	if err := e.store.CreateReadingTx(ctx, reading, &cache, updatedTank, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "persist reading")
	}

	if in.Source == model.SourceManual {
		if err := e.plans.RecordMonthly(ctx, nozzle.StationID, quota.KindManualEntries); err != nil {
			return nil, err
		}
	}
	return reading, nil
}

// Approve moves a pending reading to approved. At most one non-sample
// reading per nozzle and date may hold approved status.
func (e *Engine) Approve(ctx context.Context, actor auth.Actor, readingID uuid.UUID) (*model.NozzleReading, error) {
	r, err := e.store.Reading(ctx, readingID)
	if err != nil || r == nil {
		return nil, apperr.New(apperr.KindNotFound, "reading not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, r.StationID); err != nil {
		return nil, err
	}
	if r.ApprovalStatus != model.ApprovalPending {
		return nil, apperr.Newf(apperr.KindConflict, "reading is %s, not pending", r.ApprovalStatus)
	}

	unlock := e.locks.Lock(r.NozzleID.String())
	defer unlock()

	if !r.IsSample {
		existing, err := e.store.ApprovedOn(ctx, r.NozzleID, r.ReadingDate)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "approved reading lookup")
		}
		if existing != nil {
			return nil, apperr.Newf(apperr.KindConflict,
				"nozzle already has an approved reading for %s", r.ReadingDate)
		}
	}

	now := e.clock.Now()
	updated := *r
	updated.ApprovalStatus = model.ApprovalApproved
	by := actor.User.ID
	updated.ApprovedBy = &by
	updated.ApprovedAt = &now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &r.StationID, Action: "reading_approved",
		EntityType: "nozzle_reading", EntityID: &r.ID,
		OldValues: map[string]any{"approvalStatus": string(r.ApprovalStatus)},
		NewValues: map[string]any{"approvalStatus": string(updated.ApprovalStatus)},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.SetApprovalTx(ctx, &updated, nil, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "persist approval")
	}
	return &updated, nil
}

// Reject marks a pending reading rejected and reverses its tank decrement.
func (e *Engine) Reject(ctx context.Context, actor auth.Actor, readingID uuid.UUID, reason string) (*model.NozzleReading, error) {
	if reason == "" {
		return nil, apperr.New(apperr.KindValidation, "rejection reason required")
	}
	r, err := e.store.Reading(ctx, readingID)
	if err != nil || r == nil {
		return nil, apperr.New(apperr.KindNotFound, "reading not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, r.StationID); err != nil {
		return nil, err
	}
	if r.ApprovalStatus != model.ApprovalPending {
		return nil, apperr.Newf(apperr.KindConflict, "reading is %s, not pending", r.ApprovalStatus)
	}
	if r.FlowStatus == model.FlowSettled {
		return nil, apperr.Coded(apperr.KindConflict, apperr.CodeSettlementLocked,
			"reading is linked to a final settlement")
	}

	now := e.clock.Now()
	updated := *r
	updated.ApprovalStatus = model.ApprovalRejected
	updated.RejectionReason = reason
	by := actor.User.ID
	updated.ApprovedBy = &by
	updated.ApprovedAt = &now

	// Give the fuel back to the tank if the creation took it out.
	var updatedTank *model.Tank
	if !r.IsSample && r.LitresSold.IsPositive() {
		tnk, err := e.store.TankForFuel(ctx, r.StationID, r.FuelType)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "tank lookup")
		}
		if tnk != nil && tnk.TrackingMode != model.TrackingDisabled {
			unlock := e.locks.Lock(tnk.ID.String())
			defer unlock()
			t := *tnk
			t.CurrentLevel = t.CurrentLevel.Add(r.LitresSold)
			t.UpdatedAt = now
			updatedTank = &t
		}
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &r.StationID, Action: "reading_rejected",
		EntityType: "nozzle_reading", EntityID: &r.ID,
		OldValues: map[string]any{"approvalStatus": string(r.ApprovalStatus)},
		NewValues: map[string]any{"approvalStatus": string(updated.ApprovalStatus), "reason": reason},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.SetApprovalTx(ctx, &updated, updatedTank, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "persist rejection")
	}
	return &updated, nil
}

// Previous returns the latest reading before a date, for UI pre-fill.
func (e *Engine) Previous(ctx context.Context, actor auth.Actor, nozzleID uuid.UUID, before model.Date) (*model.NozzleReading, error) {
	nozzle, err := e.store.Nozzle(ctx, nozzleID)
	if err != nil || nozzle == nil {
		return nil, apperr.Coded(apperr.KindNotFound, apperr.CodeNozzleNotFound, "nozzle not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, nozzle.StationID); err != nil {
		return nil, err
	}
	return e.store.LatestBefore(ctx, nozzleID, before, e.clock.Now())
}

// List returns readings within the caller's scope and the plan's sales
// retention window.
func (e *Engine) List(ctx context.Context, actor auth.Actor, f Filter) ([]*model.NozzleReading, int, error) {
	if err := e.authz.AssertStation(ctx, actor.User, f.StationID); err != nil {
		return nil, 0, err
	}
	if actor.User.Role != model.RoleSuperAdmin {
		plan, err := e.plans.PlanForStation(ctx, f.StationID)
		if err != nil {
			return nil, 0, err
		}
		if plan.SalesRetentionDays > 0 {
			cutoff := model.DateOf(e.clock.Now()).AddDays(-plan.SalesRetentionDays)
			if f.From == nil || f.From.Before(cutoff) {
				f.From = &cutoff
			}
		}
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	rows, total, err := e.store.ListReadings(ctx, f)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, err, "list readings")
	}
	return rows, total, nil
}
