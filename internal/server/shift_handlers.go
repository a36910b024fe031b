package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/shift"
)

type startShiftRequest struct {
	StationID   uuid.UUID       `json:"stationId"`
	EmployeeID  uuid.UUID       `json:"employeeId"`
	Date        model.Date      `json:"date"`
	StartTime   string          `json:"startTime,omitempty"`
	ShiftType   string          `json:"shiftType,omitempty"`
	OpeningCash decimal.Decimal `json:"openingCash"`
	Notes       string          `json:"notes,omitempty"`
}

func (s *Server) handleStartShift(w http.ResponseWriter, r *http.Request) {
	var req startShiftRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	sh, err := s.deps.Shifts.Start(r.Context(), actorFrom(r.Context()), shift.StartInput{
		StationID:   req.StationID,
		EmployeeID:  req.EmployeeID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		ShiftType:   req.ShiftType,
		OpeningCash: req.OpeningCash,
		Notes:       req.Notes,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, sh)
}

type endShiftRequest struct {
	EndTime         string          `json:"endTime,omitempty"`
	CashCollected   decimal.Decimal `json:"cashCollected"`
	OnlineCollected decimal.Decimal `json:"onlineCollected"`
	CreditGiven     decimal.Decimal `json:"creditGiven"`
	Notes           string          `json:"notes,omitempty"`
}

type endShiftResponse struct {
	Shift    *model.Shift        `json:"shift"`
	Handover *model.CashHandover `json:"handover,omitempty"`
}

func (s *Server) handleEndShift(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req endShiftRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	sh, h, err := s.deps.Shifts.End(r.Context(), actorFrom(r.Context()), shift.EndInput{
		ShiftID:         id,
		EndTime:         req.EndTime,
		CashCollected:   req.CashCollected,
		OnlineCollected: req.OnlineCollected,
		CreditGiven:     req.CreditGiven,
		Notes:           req.Notes,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, endShiftResponse{Shift: sh, Handover: h})
}

type cancelShiftRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelShift(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req cancelShiftRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	sh, err := s.deps.Shifts.Cancel(r.Context(), actorFrom(r.Context()), id, req.Reason)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, sh)
}

func (s *Server) handleActiveShift(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	employeeID := actor.User.ID
	if override, err := queryUUIDOptional(r, "employee_id"); err != nil {
		respondErr(w, r, s.logger, err)
		return
	} else if override != nil {
		employeeID = *override
	}
	sh, err := s.deps.Shifts.Active(r.Context(), actor, employeeID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, sh)
}

func (s *Server) handleListShifts(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Shifts.List(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}
