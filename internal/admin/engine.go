// Package admin covers account and fleet administration: login, user
// management, stations, pumps, nozzles, fuel prices, and plans.
package admin

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/audit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/auth"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/clock"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/money"
)

// Store is the persistence slice the admin engine needs.
type Store interface {
	User(ctx context.Context, id uuid.UUID) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]*model.User, error)
	CreateUserTx(ctx context.Context, u *model.User, entry *model.AuditLog) error
	UpdateUserTx(ctx context.Context, u *model.User, entry *model.AuditLog) error

	Station(ctx context.Context, id uuid.UUID) (*model.Station, error)
	StationByCode(ctx context.Context, code string) (*model.Station, error)
	ListStations(ctx context.Context, ownerID *uuid.UUID) ([]*model.Station, error)
	CreateStationTx(ctx context.Context, s *model.Station, entry *model.AuditLog) error
	UpdateStationTx(ctx context.Context, s *model.Station, entry *model.AuditLog) error

	Pump(ctx context.Context, id uuid.UUID) (*model.Pump, error)
	ListPumps(ctx context.Context, stationID uuid.UUID) ([]*model.Pump, error)
	CreatePumpTx(ctx context.Context, p *model.Pump, entry *model.AuditLog) error
	UpdatePumpTx(ctx context.Context, p *model.Pump, entry *model.AuditLog) error

	Nozzle(ctx context.Context, id uuid.UUID) (*model.Nozzle, error)
	ListNozzles(ctx context.Context, pumpID uuid.UUID) ([]*model.Nozzle, error)
	CreateNozzleTx(ctx context.Context, n *model.Nozzle, entry *model.AuditLog) error

	ListPrices(ctx context.Context, stationID uuid.UUID) ([]*model.FuelPrice, error)
	CreatePriceTx(ctx context.Context, p *model.FuelPrice, entry *model.AuditLog) error

	Plan(ctx context.Context, id uuid.UUID) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]*model.Plan, error)
	CreatePlanTx(ctx context.Context, p *model.Plan, entry *model.AuditLog) error
	// AssignPlanTx records the owner's plan change with its changed-at
	// instant for the downgrade grace window.
	AssignPlanTx(ctx context.Context, ownerID, planID uuid.UUID, entry *model.AuditLog) error
}

// UserFilter narrows user lists.
type UserFilter struct {
	Role      *model.Role
	StationID *uuid.UUID
	CreatedBy *uuid.UUID
}

// Quotas is the slice of the quota engine the admin engine consults before
// creating plan-limited resources.
type Quotas interface {
	CheckStationCeiling(ctx context.Context, ownerID uuid.UUID) error
	CheckPumpCeiling(ctx context.Context, stationID uuid.UUID) error
	CheckNozzleCeiling(ctx context.Context, stationID, pumpID uuid.UUID) error
	CheckEmployeeCeiling(ctx context.Context, ownerID uuid.UUID) error
}

type Engine struct {
	store  Store
	authz  auth.Authorizer
	quotas Quotas
	tokens *auth.TokenIssuer
	clock  clock.Clock
}

func NewEngine(store Store, authz auth.Authorizer, quotas Quotas, tokens *auth.TokenIssuer, clk clock.Clock) *Engine {
	return &Engine{store: store, authz: authz, quotas: quotas, tokens: tokens, clock: clk}
}

// Login verifies credentials and issues a token. Unknown email and bad
// password are deliberately indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, apperr.New(apperr.KindValidation, "email and password are required")
	}
	u, err := e.store.UserByEmail(ctx, email)
	if err != nil || u == nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		return "", nil, apperr.New(apperr.KindUnauthenticated, "invalid credentials")
	}
	token, err := e.tokens.Issue(u, e.clock.Now())
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindInternal, err, "issue token")
	}
	return token, u, nil
}

// CreateUserInput is a new account request.
type CreateUserInput struct {
	Email     string
	Password  string
	Name      string
	Role      model.Role
	StationID *uuid.UUID
	PlanID    *uuid.UUID
}

// canCreateRole encodes who may create whom: super admins create owners
// (and other super admins); owners create managers and employees.
func canCreateRole(creator model.Role, target model.Role) bool {
	switch creator {
	case model.RoleSuperAdmin:
		return true
	case model.RoleOwner:
		return target == model.RoleManager || target == model.RoleEmployee
	}
	return false
}

// CreateUser registers an account under the actor's authority.
func (e *Engine) CreateUser(ctx context.Context, actor auth.Actor, in CreateUserInput) (*model.User, error) {
	if !model.ValidRole(in.Role) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown role %q", in.Role)
	}
	if !canCreateRole(actor.User.Role, in.Role) {
		return nil, apperr.Newf(apperr.KindForbidden, "a %s cannot create a %s", actor.User.Role, in.Role)
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, apperr.New(apperr.KindValidation, "a valid email is required")
	}
	if in.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	if existing, err := e.store.UserByEmail(ctx, in.Email); err == nil && existing != nil {
		return nil, apperr.New(apperr.KindConflict, "email is already registered")
	}

	switch in.Role {
	case model.RoleManager, model.RoleEmployee:
		if in.StationID == nil {
			return nil, apperr.Newf(apperr.KindValidation, "a %s needs a station", in.Role)
		}
		if err := e.authz.AssertStation(ctx, actor.User, *in.StationID); err != nil {
			return nil, err
		}
		if in.Role == model.RoleEmployee {
			ownerID := actor.User.ID
			if actor.User.Role != model.RoleOwner {
				st, err := e.store.Station(ctx, *in.StationID)
				if err != nil || st == nil {
					return nil, apperr.Wrap(apperr.KindInternal, err, "load station")
				}
				ownerID = st.OwnerID
			}
			if err := e.quotas.CheckEmployeeCeiling(ctx, ownerID); err != nil {
				return nil, err
			}
		}
	case model.RoleOwner:
		if in.PlanID == nil {
			return nil, apperr.New(apperr.KindValidation, "an owner needs a plan")
		}
		if p, err := e.store.Plan(ctx, *in.PlanID); err != nil || p == nil {
			return nil, apperr.New(apperr.KindNotFound, "plan not found")
		}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	createdBy := actor.User.ID
	u := &model.User{
		ID:           uuid.New(),
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		StationID:    in.StationID,
		PlanID:       in.PlanID,
		CreatedBy:    &createdBy,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: in.StationID, Action: "user_created",
		EntityType: "user", EntityID: &u.ID,
		NewValues: map[string]any{"email": in.Email, "role": string(in.Role)},
		Category:  model.CategoryAuth, Success: true,
	}.Build(now)

	if err := e.store.CreateUserTx(ctx, u, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create user")
	}
	return u, nil
}

// UserUpdate carries mutable account fields; nil means unchanged.
type UserUpdate struct {
	Name     *string
	Password *string
	IsActive *bool
}

// UpdateUser renames, re-passwords, or (de)activates an account. Users may
// edit themselves; otherwise the creator hierarchy applies.
func (e *Engine) UpdateUser(ctx context.Context, actor auth.Actor, userID uuid.UUID, upd UserUpdate) (*model.User, error) {
	u, err := e.store.User(ctx, userID)
	if err != nil || u == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "user not found")
	}
	if actor.User.ID != u.ID && !canCreateRole(actor.User.Role, u.Role) {
		return nil, apperr.New(apperr.KindForbidden, "not allowed to modify this user")
	}
	if upd.IsActive != nil && actor.User.ID == u.ID && !*upd.IsActive {
		return nil, apperr.New(apperr.KindValidation, "cannot deactivate your own account")
	}

	updated := *u
	if upd.Name != nil {
		if *upd.Name == "" {
			return nil, apperr.New(apperr.KindValidation, "name cannot be empty")
		}
		updated.Name = *upd.Name
	}
	if upd.Password != nil {
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		updated.PasswordHash = hash
	}
	if upd.IsActive != nil {
		updated.IsActive = *upd.IsActive
	}

	now := e.clock.Now()
	updated.UpdatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: u.StationID, Action: "user_updated",
		EntityType: "user", EntityID: &u.ID,
		OldValues: map[string]any{"isActive": u.IsActive},
		NewValues: map[string]any{"isActive": updated.IsActive, "passwordChanged": upd.Password != nil},
		Category:  model.CategoryAuth, Success: true,
	}.Build(now)

	if err := e.store.UpdateUserTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update user")
	}
	return &updated, nil
}

// CreateStationInput is a new station request.
type CreateStationInput struct {
	Name    string
	Code    string
	OwnerID uuid.UUID
	Brand   string
	Address string
	Phone   string

	ShiftRequiredForReading bool
	MissedReadingAlertDays  int
}

// CreateStation registers a station for an owner, subject to the plan's
// station ceiling.
func (e *Engine) CreateStation(ctx context.Context, actor auth.Actor, in CreateStationInput) (*model.Station, error) {
	if in.Name == "" || in.Code == "" {
		return nil, apperr.New(apperr.KindValidation, "name and code are required")
	}
	if actor.User.Role == model.RoleOwner {
		in.OwnerID = actor.User.ID
	} else if actor.User.Role != model.RoleSuperAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only owners and super admins create stations")
	}

	owner, err := e.store.User(ctx, in.OwnerID)
	if err != nil || owner == nil || owner.Role != model.RoleOwner {
		return nil, apperr.New(apperr.KindValidation, "ownerId must reference an owner account")
	}
	if err := e.quotas.CheckStationCeiling(ctx, in.OwnerID); err != nil {
		return nil, err
	}
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	if existing, err := e.store.StationByCode(ctx, in.Code); err == nil && existing != nil {
		return nil, apperr.Newf(apperr.KindConflict, "station code %s is taken", in.Code)
	}

	now := e.clock.Now()
	s := &model.Station{
		ID:      uuid.New(),
		Name:    in.Name,
		Code:    in.Code,
		OwnerID: in.OwnerID,
		Brand:   in.Brand,
		Address: in.Address,
		Phone:   in.Phone,

		ShiftRequiredForReading: in.ShiftRequiredForReading,
		MissedReadingAlertDays:  in.MissedReadingAlertDays,

		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &s.ID, Action: "station_created",
		EntityType: "station", EntityID: &s.ID,
		NewValues: map[string]any{"name": in.Name, "code": in.Code, "ownerId": in.OwnerID.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreateStationTx(ctx, s, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create station")
	}
	return s, nil
}

// CreatePumpInput is a new dispenser request.
type CreatePumpInput struct {
	StationID  uuid.UUID
	Name       string
	PumpNumber int
	Serial     string
}

// CreatePump adds a dispenser, subject to the per-station pump ceiling.
func (e *Engine) CreatePump(ctx context.Context, actor auth.Actor, in CreatePumpInput) (*model.Pump, error) {
	if in.PumpNumber <= 0 {
		return nil, apperr.New(apperr.KindValidation, "pumpNumber must be positive")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}
	if err := e.quotas.CheckPumpCeiling(ctx, in.StationID); err != nil {
		return nil, err
	}
	existing, err := e.store.ListPumps(ctx, in.StationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list pumps")
	}
	for _, p := range existing {
		if p.PumpNumber == in.PumpNumber {
			return nil, apperr.Newf(apperr.KindConflict, "pump number %d exists at this station", in.PumpNumber)
		}
	}

	now := e.clock.Now()
	p := &model.Pump{
		ID:         uuid.New(),
		StationID:  in.StationID,
		Name:       in.Name,
		PumpNumber: in.PumpNumber,
		Serial:     strings.ToUpper(strings.TrimSpace(in.Serial)),
		Status:     model.PumpActive,
		CreatedAt:  now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "pump_created",
		EntityType: "pump", EntityID: &p.ID,
		NewValues: map[string]any{"pumpNumber": in.PumpNumber, "serial": p.Serial},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreatePumpTx(ctx, p, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create pump")
	}
	return p, nil
}

// SetPumpStatus moves a pump between active, repair, and inactive.
func (e *Engine) SetPumpStatus(ctx context.Context, actor auth.Actor, pumpID uuid.UUID, status model.PumpStatus) (*model.Pump, error) {
	switch status {
	case model.PumpActive, model.PumpRepair, model.PumpInactive:
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown pump status %q", status)
	}
	p, err := e.store.Pump(ctx, pumpID)
	if err != nil || p == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "pump not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, p.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	updated := *p
	updated.Status = status

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &p.StationID, Action: "pump_status_changed",
		EntityType: "pump", EntityID: &p.ID,
		OldValues: map[string]any{"status": string(p.Status)},
		NewValues: map[string]any{"status": string(status)},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.UpdatePumpTx(ctx, &updated, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "update pump")
	}
	return &updated, nil
}

// CreateNozzleInput is a new fuel outlet request.
type CreateNozzleInput struct {
	PumpID         uuid.UUID
	NozzleNumber   int
	FuelType       model.FuelType
	InitialReading *decimal.Decimal
}

// CreateNozzle adds an outlet to a pump, subject to the nozzle ceiling.
func (e *Engine) CreateNozzle(ctx context.Context, actor auth.Actor, in CreateNozzleInput) (*model.Nozzle, error) {
	if in.NozzleNumber <= 0 {
		return nil, apperr.New(apperr.KindValidation, "nozzleNumber must be positive")
	}
	if in.FuelType == "" {
		return nil, apperr.New(apperr.KindValidation, "fuelType is required")
	}
	if in.InitialReading != nil && in.InitialReading.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "initialReading cannot be negative")
	}
	p, err := e.store.Pump(ctx, in.PumpID)
	if err != nil || p == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "pump not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, p.StationID); err != nil {
		return nil, err
	}
	if err := e.quotas.CheckNozzleCeiling(ctx, p.StationID, p.ID); err != nil {
		return nil, err
	}
	siblings, err := e.store.ListNozzles(ctx, p.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "list nozzles")
	}
	for _, n := range siblings {
		if n.NozzleNumber == in.NozzleNumber {
			return nil, apperr.Newf(apperr.KindConflict, "nozzle %d exists on this pump", in.NozzleNumber)
		}
	}

	now := e.clock.Now()
	n := &model.Nozzle{
		ID:             uuid.New(),
		PumpID:         p.ID,
		StationID:      p.StationID,
		NozzleNumber:   in.NozzleNumber,
		FuelType:       in.FuelType,
		Status:         model.PumpActive,
		InitialReading: in.InitialReading,
		CreatedAt:      now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &p.StationID, Action: "nozzle_created",
		EntityType: "nozzle", EntityID: &n.ID,
		NewValues: map[string]any{"pumpId": p.ID.String(), "nozzleNumber": in.NozzleNumber, "fuelType": string(in.FuelType)},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreateNozzleTx(ctx, n, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create nozzle")
	}
	return n, nil
}

// SetPriceInput is a new effective fuel price.
type SetPriceInput struct {
	StationID     uuid.UUID
	FuelType      model.FuelType
	SellingPrice  decimal.Decimal
	CostPrice     *decimal.Decimal
	EffectiveFrom model.Date
}

// SetPrice records a price effective from a date. Prices never overwrite;
// the reading engine picks the latest effectiveFrom on or before its date.
func (e *Engine) SetPrice(ctx context.Context, actor auth.Actor, in SetPriceInput) (*model.FuelPrice, error) {
	if !in.SellingPrice.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "sellingPrice must be positive")
	}
	if in.CostPrice != nil && in.CostPrice.IsNegative() {
		return nil, apperr.New(apperr.KindValidation, "costPrice cannot be negative")
	}
	if in.EffectiveFrom.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "effectiveFrom is required")
	}
	if err := e.authz.AssertStation(ctx, actor.User, in.StationID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	p := &model.FuelPrice{
		ID:            uuid.New(),
		StationID:     in.StationID,
		FuelType:      in.FuelType,
		SellingPrice:  money.Round2(in.SellingPrice),
		CostPrice:     in.CostPrice,
		EffectiveFrom: in.EffectiveFrom,
		CreatedAt:     now,
	}

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		StationID: &in.StationID, Action: "fuel_price_set",
		EntityType: "fuel_price", EntityID: &p.ID,
		NewValues: map[string]any{
			"fuelType":      string(in.FuelType),
			"sellingPrice":  p.SellingPrice.String(),
			"effectiveFrom": in.EffectiveFrom.String(),
		},
		Category: model.CategoryFinance, Success: true,
	}.Build(now)

	if err := e.store.CreatePriceTx(ctx, p, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "set fuel price")
	}
	return p, nil
}

// CreatePlan registers a subscription profile. Super admin only.
func (e *Engine) CreatePlan(ctx context.Context, actor auth.Actor, p *model.Plan) (*model.Plan, error) {
	if actor.User.Role != model.RoleSuperAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only super admins manage plans")
	}
	if p.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "plan name is required")
	}

	now := e.clock.Now()
	p.ID = uuid.New()
	p.CreatedAt = now

	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		Action:     "plan_created",
		EntityType: "plan", EntityID: &p.ID,
		NewValues: map[string]any{"name": p.Name, "maxStations": p.MaxStations},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.CreatePlanTx(ctx, p, entry); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "create plan")
	}
	return p, nil
}

// AssignPlan switches an owner to another plan, starting the downgrade
// grace window from now.
func (e *Engine) AssignPlan(ctx context.Context, actor auth.Actor, ownerID, planID uuid.UUID) error {
	if actor.User.Role != model.RoleSuperAdmin {
		return apperr.New(apperr.KindForbidden, "only super admins assign plans")
	}
	owner, err := e.store.User(ctx, ownerID)
	if err != nil || owner == nil || owner.Role != model.RoleOwner {
		return apperr.New(apperr.KindValidation, "ownerId must reference an owner account")
	}
	if p, err := e.store.Plan(ctx, planID); err != nil || p == nil {
		return apperr.New(apperr.KindNotFound, "plan not found")
	}

	now := e.clock.Now()
	old := ""
	if owner.PlanID != nil {
		old = owner.PlanID.String()
	}
	entry := audit.Entry{
		Actor: actor.User, IP: actor.IP, UserAgent: actor.UserAgent,
		Action:     "plan_assigned",
		EntityType: "user", EntityID: &ownerID,
		OldValues: map[string]any{"planId": old},
		NewValues: map[string]any{"planId": planID.String()},
		Category:  model.CategoryData, Success: true,
	}.Build(now)

	if err := e.store.AssignPlanTx(ctx, ownerID, planID, entry); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "assign plan")
	}
	return nil
}

// Reads below are thin scope-checked pass-throughs.

func (e *Engine) GetStation(ctx context.Context, actor auth.Actor, id uuid.UUID) (*model.Station, error) {
	s, err := e.store.Station(ctx, id)
	if err != nil || s == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "station not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// ListStations returns the actor's visible stations: all for super admins,
// owned for owners, the home station otherwise.
func (e *Engine) ListStations(ctx context.Context, actor auth.Actor) ([]*model.Station, error) {
	switch actor.User.Role {
	case model.RoleSuperAdmin:
		return e.store.ListStations(ctx, nil)
	case model.RoleOwner:
		ownerID := actor.User.ID
		return e.store.ListStations(ctx, &ownerID)
	default:
		if actor.User.StationID == nil {
			return nil, nil
		}
		s, err := e.store.Station(ctx, *actor.User.StationID)
		if err != nil || s == nil {
			return nil, apperr.Wrap(apperr.KindInternal, err, "load station")
		}
		return []*model.Station{s}, nil
	}
}

func (e *Engine) ListPumps(ctx context.Context, actor auth.Actor, stationID uuid.UUID) ([]*model.Pump, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	return e.store.ListPumps(ctx, stationID)
}

func (e *Engine) ListNozzles(ctx context.Context, actor auth.Actor, pumpID uuid.UUID) ([]*model.Nozzle, error) {
	p, err := e.store.Pump(ctx, pumpID)
	if err != nil || p == nil {
		return nil, apperr.Wrap(apperr.KindNotFound, err, "pump not found")
	}
	if err := e.authz.AssertStation(ctx, actor.User, p.StationID); err != nil {
		return nil, err
	}
	return e.store.ListNozzles(ctx, pumpID)
}

func (e *Engine) ListPrices(ctx context.Context, actor auth.Actor, stationID uuid.UUID) ([]*model.FuelPrice, error) {
	if err := e.authz.AssertStation(ctx, actor.User, stationID); err != nil {
		return nil, err
	}
	return e.store.ListPrices(ctx, stationID)
}

func (e *Engine) ListPlans(ctx context.Context, actor auth.Actor) ([]*model.Plan, error) {
	if actor.User.Role != model.RoleSuperAdmin && actor.User.Role != model.RoleOwner {
		return nil, apperr.New(apperr.KindForbidden, "plans are visible to owners and super admins")
	}
	return e.store.ListPlans(ctx)
}

func (e *Engine) ListUsers(ctx context.Context, actor auth.Actor, f UserFilter) ([]*model.User, error) {
	switch actor.User.Role {
	case model.RoleSuperAdmin:
	case model.RoleOwner:
		createdBy := actor.User.ID
		f.CreatedBy = &createdBy
	default:
		return nil, apperr.New(apperr.KindForbidden, "user lists are for owners and super admins")
	}
	return e.store.ListUsers(ctx, f)
}
