package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/settlement"
)

type createSettlementRequest struct {
	Date           model.Date      `json:"date"`
	ReadingIDs     []uuid.UUID     `json:"readingIds"`
	ReportedCash   decimal.Decimal `json:"reportedCash"`
	ReportedOnline decimal.Decimal `json:"reportedOnline"`
	ReportedCredit decimal.Decimal `json:"reportedCredit"`
	ActualCash     decimal.Decimal `json:"actualCash"`
}

func (s *Server) handleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathUUID(r, "stationId")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req createSettlementRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Settlements.CreateDraft(r.Context(), actorFrom(r.Context()), settlement.CreateInput{
		StationID:      stationID,
		Date:           req.Date,
		ReadingIDs:     req.ReadingIDs,
		ReportedCash:   req.ReportedCash,
		ReportedOnline: req.ReportedOnline,
		ReportedCredit: req.ReportedCredit,
		ActualCash:     req.ActualCash,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, st)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathUUID(r, "stationId")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	from, to, err := s.dateRange(r)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Settlements.List(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Settlements.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, st)
}

type updateSettlementRequest struct {
	ActualCash      *decimal.Decimal `json:"actualCash,omitempty"`
	ConfirmedOnline *decimal.Decimal `json:"confirmedOnline,omitempty"`
	ConfirmedCredit *decimal.Decimal `json:"confirmedCredit,omitempty"`
}

func (s *Server) handleUpdateSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req updateSettlementRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Settlements.Update(r.Context(), actorFrom(r.Context()), id, settlement.UpdateInput{
		ActualCash:      req.ActualCash,
		ConfirmedOnline: req.ConfirmedOnline,
		ConfirmedCredit: req.ConfirmedCredit,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (s *Server) handleFinalizeSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Settlements.Finalize(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, st)
}

func (s *Server) handleLockSettlement(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	st, err := s.deps.Settlements.Lock(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, st)
}
