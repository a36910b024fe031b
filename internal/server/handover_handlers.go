package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/handover"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type createHandoverRequest struct {
	StationID          uuid.UUID          `json:"stationId"`
	Type               model.HandoverType `json:"type"`
	Date               model.Date         `json:"date"`
	FromUserID         *uuid.UUID         `json:"fromUserId,omitempty"`
	ToUserID           *uuid.UUID         `json:"toUserId,omitempty"`
	ExpectedAmount     decimal.Decimal    `json:"expectedAmount"`
	PreviousHandoverID *uuid.UUID         `json:"previousHandoverId,omitempty"`
	ShiftID            *uuid.UUID         `json:"shiftId,omitempty"`
	BankName           string             `json:"bankName,omitempty"`
	DepositReference   string             `json:"depositReference,omitempty"`
	Notes              string             `json:"notes,omitempty"`
}

func (s *Server) handleCreateHandover(w http.ResponseWriter, r *http.Request) {
	var req createHandoverRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	h, err := s.deps.Handovers.Create(r.Context(), actorFrom(r.Context()), handover.CreateInput{
		StationID:          req.StationID,
		Type:               req.Type,
		Date:               req.Date,
		FromUserID:         req.FromUserID,
		ToUserID:           req.ToUserID,
		ExpectedAmount:     req.ExpectedAmount,
		PreviousHandoverID: req.PreviousHandoverID,
		ShiftID:            req.ShiftID,
		BankName:           req.BankName,
		DepositReference:   req.DepositReference,
		Notes:              req.Notes,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, h)
}

type confirmHandoverRequest struct {
	ActualAmount decimal.Decimal `json:"actualAmount"`
	Notes        string          `json:"notes,omitempty"`
}

func (s *Server) handleConfirmHandover(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req confirmHandoverRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	h, err := s.deps.Handovers.Confirm(r.Context(), actorFrom(r.Context()), id, req.ActualAmount, req.Notes)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if s.deps.Metrics != nil && h.Status == model.HandoverDisputed {
		s.deps.Metrics.HandoverDisputes.Inc()
	}
	respond(w, http.StatusOK, h)
}

type resolveHandoverRequest struct {
	ResolutionNotes string `json:"resolutionNotes"`
}

func (s *Server) handleResolveHandover(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req resolveHandoverRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	h, err := s.deps.Handovers.ResolveDispute(r.Context(), actorFrom(r.Context()), id, req.ResolutionNotes)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, h)
}

func (s *Server) handleGetHandover(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	h, err := s.deps.Handovers.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, h)
}

func (s *Server) handlePendingHandovers(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	actor := actorFrom(r.Context())
	userID := actor.User.ID
	if override, err := queryUUIDOptional(r, "user_id"); err != nil {
		respondErr(w, r, s.logger, err)
		return
	} else if override != nil {
		userID = *override
	}
	list, err := s.deps.Handovers.PendingForUser(r.Context(), actor, stationID, userID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleUnconfirmedHandovers(w http.ResponseWriter, r *http.Request) {
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
	list, err := s.deps.Handovers.Unconfirmed(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleBankDeposits(w http.ResponseWriter, r *http.Request) {
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
	list, err := s.deps.Handovers.BankDeposits(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleCashFlowSummary(w http.ResponseWriter, r *http.Request) {
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
	summary, err := s.deps.Handovers.CashFlowSummary(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, summary)
}
