package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/tank"
)

func (s *Server) handleListTanks(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Tanks.List(r.Context(), actorFrom(r.Context()), stationID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

type createTankRequest struct {
	StationID     uuid.UUID              `json:"stationId"`
	Name          string                 `json:"name"`
	FuelName      string                 `json:"fuelName,omitempty"`
	FuelType      model.FuelType         `json:"fuelType"`
	Capacity      decimal.Decimal        `json:"capacity"`
	InitialLevel  decimal.Decimal        `json:"initialLevel"`
	TrackingMode  model.TankTrackingMode `json:"trackingMode,omitempty"`
	LowLitres     *decimal.Decimal       `json:"lowThresholdLitres,omitempty"`
	LowPercent    *decimal.Decimal       `json:"lowThresholdPercent,omitempty"`
	CritLitres    *decimal.Decimal       `json:"criticalThresholdLitres,omitempty"`
	CritPercent   *decimal.Decimal       `json:"criticalThresholdPercent,omitempty"`
	AllowNegative bool                   `json:"allowNegative,omitempty"`
}

func (s *Server) handleCreateTank(w http.ResponseWriter, r *http.Request) {
	var req createTankRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	t, err := s.deps.Tanks.Create(r.Context(), actorFrom(r.Context()), tank.CreateInput{
		StationID:     req.StationID,
		Name:          req.Name,
		FuelName:      req.FuelName,
		FuelType:      req.FuelType,
		Capacity:      req.Capacity,
		InitialLevel:  req.InitialLevel,
		TrackingMode:  req.TrackingMode,
		LowLitres:     req.LowLitres,
		LowPercent:    req.LowPercent,
		CritLitres:    req.CritLitres,
		CritPercent:   req.CritPercent,
		AllowNegative: req.AllowNegative,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, t)
}

type recordRefillRequest struct {
	Litres        decimal.Decimal       `json:"litres"`
	RefillDate    model.Date            `json:"refillDate"`
	RefillTime    string                `json:"refillTime,omitempty"`
	CostPerLitre  *decimal.Decimal      `json:"costPerLitre,omitempty"`
	Supplier      string                `json:"supplier,omitempty"`
	InvoiceNumber string                `json:"invoiceNumber,omitempty"`
	VehicleNumber string                `json:"vehicleNumber,omitempty"`
	DriverName    string                `json:"driverName,omitempty"`
	LevelBefore   *decimal.Decimal      `json:"levelBefore,omitempty"`
	EntryType     model.RefillEntryType `json:"entryType,omitempty"`
}

func (s *Server) handleRecordRefill(w http.ResponseWriter, r *http.Request) {
	tankID, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req recordRefillRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	refill, err := s.deps.Tanks.RecordRefill(r.Context(), actorFrom(r.Context()), tank.RefillInput{
		TankID:        tankID,
		Litres:        req.Litres,
		RefillDate:    req.RefillDate,
		RefillTime:    req.RefillTime,
		CostPerLitre:  req.CostPerLitre,
		Supplier:      req.Supplier,
		InvoiceNumber: req.InvoiceNumber,
		VehicleNumber: req.VehicleNumber,
		DriverName:    req.DriverName,
		LevelBefore:   req.LevelBefore,
		EntryType:     req.EntryType,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, refill)
}

func (s *Server) handleListRefills(w http.ResponseWriter, r *http.Request) {
	tankID, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Tanks.ListRefills(r.Context(), actorFrom(r.Context()), tankID, queryInt(r, "limit", "50"))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleDeleteRefill(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if err := s.deps.Tanks.DeleteRefill(r.Context(), actorFrom(r.Context()), id); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

type calibrateTankRequest struct {
	DipLitres decimal.Decimal `json:"dipLitres"`
	Date      model.Date      `json:"date"`
}

func (s *Server) handleCalibrateTank(w http.ResponseWriter, r *http.Request) {
	tankID, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req calibrateTankRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	t, err := s.deps.Tanks.Calibrate(r.Context(), actorFrom(r.Context()), tankID, req.DipLitres, req.Date)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, t)
}
