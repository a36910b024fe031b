package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/admin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type createUserRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Name      string     `json:"name"`
	Role      model.Role `json:"role"`
	StationID *uuid.UUID `json:"stationId,omitempty"`
	PlanID    *uuid.UUID `json:"planId,omitempty"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	u, err := s.deps.Admin.CreateUser(r.Context(), actorFrom(r.Context()), admin.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      req.Role,
		StationID: req.StationID,
		PlanID:    req.PlanID,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var f admin.UserFilter
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := model.Role(raw)
		f.Role = &role
	}
	stationID, err := queryUUIDOptional(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	f.StationID = stationID
	list, err := s.deps.Admin.ListUsers(r.Context(), actorFrom(r.Context()), f)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

type updateUserRequest struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	u, err := s.deps.Admin.UpdateUser(r.Context(), actorFrom(r.Context()), id, admin.UserUpdate{
		Name:     req.Name,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, u)
}

type assignPlanRequest struct {
	PlanID uuid.UUID `json:"planId"`
}

func (s *Server) handleAssignPlan(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req assignPlanRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if err := s.deps.Admin.AssignPlan(r.Context(), actorFrom(r.Context()), ownerID, req.PlanID); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"assigned": true})
}

type createStationRequest struct {
	Name    string    `json:"name"`
	Code    string    `json:"code"`
	OwnerID uuid.UUID `json:"ownerId"`
	Brand   string    `json:"brand,omitempty"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`

	ShiftRequiredForReading bool `json:"shiftRequiredForReading,omitempty"`
	MissedReadingAlertDays  int  `json:"missedReadingAlertDays,omitempty"`
}

func (s *Server) handleCreateStation(w http.ResponseWriter, r *http.Request) {
	var req createStationRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Admin.CreateStation(r.Context(), actorFrom(r.Context()), admin.CreateStationInput{
		Name:                    req.Name,
		Code:                    req.Code,
		OwnerID:                 req.OwnerID,
		Brand:                   req.Brand,
		Address:                 req.Address,
		Phone:                   req.Phone,
		ShiftRequiredForReading: req.ShiftRequiredForReading,
		MissedReadingAlertDays:  req.MissedReadingAlertDays,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, st)
}

func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Admin.ListStations(r.Context(), actorFrom(r.Context()))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleGetStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "stationId")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Admin.GetStation(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, st)
}

type createPumpRequest struct {
	StationID  uuid.UUID `json:"stationId"`
	Name       string    `json:"name"`
	PumpNumber int       `json:"pumpNumber,omitempty"`
	Serial     string    `json:"serialNumber,omitempty"`
}

func (s *Server) handleCreatePump(w http.ResponseWriter, r *http.Request) {
	var req createPumpRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	p, err := s.deps.Admin.CreatePump(r.Context(), actorFrom(r.Context()), admin.CreatePumpInput{
		StationID:  req.StationID,
		Name:       req.Name,
		PumpNumber: req.PumpNumber,
		Serial:     req.Serial,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, p)
}

func (s *Server) handleListPumps(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Admin.ListPumps(r.Context(), actorFrom(r.Context()), stationID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

type pumpStatusRequest struct {
	Status model.PumpStatus `json:"status"`
}

func (s *Server) handleSetPumpStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req pumpStatusRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	p, err := s.deps.Admin.SetPumpStatus(r.Context(), actorFrom(r.Context()), id, req.Status)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, p)
}

type createNozzleRequest struct {
	PumpID         uuid.UUID        `json:"pumpId"`
	NozzleNumber   int              `json:"nozzleNumber"`
	FuelType       model.FuelType   `json:"fuelType"`
	InitialReading *decimal.Decimal `json:"initialReading,omitempty"`
}

func (s *Server) handleCreateNozzle(w http.ResponseWriter, r *http.Request) {
	var req createNozzleRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	n, err := s.deps.Admin.CreateNozzle(r.Context(), actorFrom(r.Context()), admin.CreateNozzleInput{
		PumpID:         req.PumpID,
		NozzleNumber:   req.NozzleNumber,
		FuelType:       req.FuelType,
		InitialReading: req.InitialReading,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, n)
}

func (s *Server) handleListNozzles(w http.ResponseWriter, r *http.Request) {
	pumpID, err := queryUUID(r, "pump_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Admin.ListNozzles(r.Context(), actorFrom(r.Context()), pumpID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

type setPriceRequest struct {
	StationID     uuid.UUID        `json:"stationId"`
	FuelType      model.FuelType   `json:"fuelType"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	CostPrice     *decimal.Decimal `json:"costPrice,omitempty"`
	EffectiveFrom model.Date       `json:"effectiveFrom"`
}

func (s *Server) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	price, err := s.deps.Admin.SetPrice(r.Context(), actorFrom(r.Context()), admin.SetPriceInput{
		StationID:     req.StationID,
		FuelType:      req.FuelType,
		SellingPrice:  req.SellingPrice,
		CostPrice:     req.CostPrice,
		EffectiveFrom: req.EffectiveFrom,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, price)
}

func (s *Server) handleListPrices(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Admin.ListPrices(r.Context(), actorFrom(r.Context()), stationID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var plan model.Plan
	if err := decode(r, &plan); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	created, err := s.deps.Admin.CreatePlan(r.Context(), actorFrom(r.Context()), &plan)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Admin.ListPlans(r.Context(), actorFrom(r.Context()))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}
