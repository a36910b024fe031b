package tank

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
)

// Store is the persistence slice the tank engine needs. The *Tx methods run
// every row they touch, audit row included, in one database transaction.
type Store interface {
	Tank(ctx context.Context, id uuid.UUID) (*model.Tank, error)
	ListTanks(ctx context.Context, stationID uuid.UUID) ([]*model.Tank, error)
	Refill(ctx context.Context, id uuid.UUID) (*model.TankRefill, error)
	ListRefills(ctx context.Context, tankID uuid.UUID, limit int) ([]*model.TankRefill, error)

	// CreateTankTx persists a new tank.
	CreateTankTx(ctx context.Context, tank *model.Tank, entry *model.AuditLog) error
	// RecordRefillTx persists the refill and the updated tank fields.
	RecordRefillTx(ctx context.Context, refill *model.TankRefill, tank *model.Tank, entry *model.AuditLog) error
	// DeleteRefillTx removes the refill and applies the reversed tank state.
	DeleteRefillTx(ctx context.Context, refillID uuid.UUID, tank *model.Tank, entry *model.AuditLog) error
	// UpdateTankTx applies calibration or settings changes.
	UpdateTankTx(ctx context.Context, tank *model.Tank, entry *model.AuditLog) error
}

// Engine mutates tank levels. All level updates for one tank are serialized
// through a tank-scoped mutex.
type Engine struct {
	store Store
	authz auth.Authorizer
	locks *keymutex.KeyedMutex
	clock clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, locks: keymutex.New(), clock: clk}
}

// View is a tank plus its derived status fields, for read paths.
type View struct {
	*model.Tank
	Status          model.TankStatus `json:"status"`
	SinceLastRefill *decimal.Decimal `json:"sinceLastRefill,omitempty"`
}

// List returns the station's tanks with classification applied.
func (e *Engine) List(ctx context.Context, actor auth.Actor, stationID uuid.UUID) ([]View, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	tanks, err := e.store.ListTanks(ctx, stationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list tanks")
	}
	views := make([]View, 0, len(tanks))
	for _, t := range tanks {
		views = append(views, View{Tank: t, Status: Status(t), SinceLastRefill: SinceLastRefill(t)})
	}
	return views, nil
}

// CreateInput is the caller-supplied part of a new tank.
type CreateInput struct {
	StationID     uuid.UUID
	Name          string
	FuelName      string
	FuelType      model.FuelType
	Capacity      decimal.Decimal
	InitialLevel  decimal.Decimal
	TrackingMode  model.TankTrackingMode
	LowLitres     *decimal.Decimal
	LowPercent    *decimal.Decimal
	CritLitres    *decimal.Decimal
	CritPercent   *decimal.Decimal
	AllowNegative bool
}

// Create provisions a tank for one fuel at a station. One tank per
// (station, fuelType); the database enforces uniqueness.
func (e *Engine) Create(ctx context.Context, actor auth.Actor, in CreateInput) (*model.Tank, error) {
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}
	if in.FuelType == "" {
		return nil, apperr.New(apperr.KindValidation, "fuelType is required")
	}
	if !in.Capacity.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "capacity must be > 0")
	}
	if in.InitialLevel.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "initial level cannot be negative")
	}
	if in.TrackingMode == "" {
		in.TrackingMode = model.TrackingWarning
	}
	switch in.TrackingMode {
	case model.TrackingStrict, model.TrackingWarning, model.TrackingDisabled:
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown tracking mode %q", in.TrackingMode)
	}

	now := e.clock.Now()
	t := &model.Tank{
		ID:                   uuid.New(),
		StationID:            in.StationID,
		Name:                 in.Name,
		FuelName:             in.FuelName,
		FuelType:             in.FuelType,
		Capacity:             in.Capacity,
		CurrentLevel:         in.InitialLevel,
		TrackingMode:         in.TrackingMode,
		LowLevelLitres:       in.LowLitres,
		LowLevelPercent:      in.LowPercent,
		CriticalLevelLitres:  in.CritLitres,
		CriticalLevelPercent: in.CritPercent,
		AllowNegative:        in.AllowNegative,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "tank_created",
		EntityType: "tank", EntityID: &t.ID,
		NewValues: map[string]any{
			"fuelType":     string(t.FuelType),
			"capacity":     t.Capacity.String(),
			"currentLevel": t.CurrentLevel.String(),
		},
		Category: model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreateTankTx(ctx, t, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create tank")
	}
	return t, nil
}

// RefillInput is the caller-supplied part of a refill record.
type RefillInput struct {
	TankID        uuid.UUID
	Litres        decimal.Decimal
	RefillDate    model.Date
	RefillTime    string
	CostPerLitre  *decimal.Decimal
	Supplier      string
	InvoiceNumber string
	VehicleNumber string
	DriverName    string
	LevelBefore   *decimal.Decimal
	EntryType     model.RefillEntryType
}

// RecordRefill persists a delivery (or correction) and moves the tank level
// by its litres. Corrections may be negative; zero is rejected.
func (e *Engine) RecordRefill(ctx context.Context, actor auth.Actor, in RefillInput) (*model.TankRefill, error) {
	if in.Litres.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "litres must be non-zero")
	}
	if in.RefillTime != "" && !model.ValidTimeOfDay(in.RefillTime) {
		return nil, apperr.New(apperr.KindValidation, "refillTime must be HH:MM:SS")
	}
	if in.EntryType == "" {
		in.EntryType = model.RefillDelivery
	}
	if in.Litres.IsNegative() && in.EntryType != model.RefillCorrection {
		return nil, apperr.New(apperr.KindValidation, "negative litres require entryType=correction")
	}

	unlock := e.locks.Lock(in.TankID.String())
	defer unlock()

	t, err := e.store.Tank(ctx, in.TankID)
	if err != nil || t == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "tank not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, t.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	today := model.DateOf(now)
	if in.RefillDate.After(today) {
		return nil, apperr.Coded(apperr.KindValidation, apperr.CodeFutureDate, "refill date is in the future")
	}

	before := t.CurrentLevel
	after := before.Add(in.Litres)

	refill := &model.TankRefill{
		ID:              uuid.New(),
		TankID:          t.ID,
		StationID:       t.StationID,
		Litres:          in.Litres,
		RefillDate:      in.RefillDate,
		RefillTime:      in.RefillTime,
		CostPerLitre:    in.CostPerLitre,
		Supplier:        in.Supplier,
		InvoiceNumber:   in.InvoiceNumber,
		VehicleNumber:   in.VehicleNumber,
		DriverName:      in.DriverName,
		TankLevelBefore: in.LevelBefore,
		TankLevelAfter:  &after,
		EntryType:       in.EntryType,
		Backdated:       in.RefillDate.Before(today),
		EnteredBy:       actor.User.ID,
		CreatedAt:       now,
	}
	if in.CostPerLitre != nil {
		total := in.CostPerLitre.Mul(in.Litres).Round(2)
		refill.TotalCost = &total
	}

	updated := *t
	updated.CurrentLevel = after
	updated.LevelAfterLastRefill = &after
	updated.LastRefillDate = &in.RefillDate
	litres := in.Litres
	updated.LastRefillAmount = &litres
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &t.StationID, Action: "tank_refill_recorded",
		EntityType: "tank_refill", EntityID: &refill.ID,
		OldValues: map[string]any{"currentLevel": before.String()},
		NewValues: map[string]any{"currentLevel": after.String(), "litres": in.Litres.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.RecordRefillTx(ctx, refill, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "record refill")
	}
	return refill, nil
}

// DeleteRefill reverses a refill's effect on the tank and removes the row.
func (e *Engine) DeleteRefill(ctx context.Context, actor auth.Actor, refillID uuid.UUID) error {
	refill, err := e.store.Refill(ctx, refillID)
	if err != nil || refill == nil {
		return apperr.Wrap(apperr.KindNotFound, err, "refill not found")
	}

	unlock := e.locks.Lock(refill.TankID.String())
	defer unlock()

	t, err := e.store.Tank(ctx, refill.TankID)
	if err != nil || t == nil {
		return apperr.Wrap(apperr.KindNotFound, err, "tank not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, t.StationID); err != nil {
		return err
	}

	now := e.clock.Now()
	updated := *t
	updated.CurrentLevel = t.CurrentLevel.Sub(refill.Litres)
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &t.StationID, Action: "tank_refill_deleted",
		EntityType: "tank_refill", EntityID: &refillID,
		OldValues: map[string]any{"litres": refill.Litres.String(), "currentLevel": t.CurrentLevel.String()},
		NewValues: map[string]any{"currentLevel": updated.CurrentLevel.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.DeleteRefillTx(ctx, refillID, &updated, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "delete refill")
	}
	return nil
}

// Calibrate sets the level from a physical dip reading.
func (e *Engine) Calibrate(ctx context.Context, actor auth.Actor, tankID uuid.UUID, dip decimal.Decimal, date model.Date) (*model.Tank, error) {
	if dip.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "dip reading cannot be negative")
	}

	unlock := e.locks.Lock(tankID.String())
	defer unlock()

	t, err := e.store.Tank(ctx, tankID)
	if err != nil || t == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "tank not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, t.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	old := t.CurrentLevel
	updated := *t
	updated.CurrentLevel = dip
	updated.LastDipReading = &dip
	updated.LastDipDate = &date
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &t.StationID, Action: "tank_calibrated",
		EntityType: "tank", EntityID: &t.ID,
		OldValues: map[string]any{"currentLevel": old.String()},
		NewValues: map[string]any{"currentLevel": dip.String(), "dipDate": date.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.UpdateTankTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "calibrate tank")
	}
	return &updated, nil
}

// ListRefills returns recent refills for a tank.
func (e *Engine) ListRefills(ctx context.Context, actor auth.Actor, tankID uuid.UUID, limit int) ([]*model.TankRefill, error) {
	t, err := e.store.Tank(ctx, tankID)
	if err != nil || t == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "tank not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, t.StationID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	refills, err := e.store.ListRefills(ctx, tankID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list refills")
	}
	return refills, nil
}
