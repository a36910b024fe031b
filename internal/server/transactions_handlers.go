package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/transactions"
)

type createTransactionRequest struct {
	StationID    uuid.UUID                `json:"stationId"`
	Date         model.Date               `json:"date"`
	ReadingIDs   []uuid.UUID              `json:"readingIds"`
	Payment      model.PaymentBreakdown   `json:"payment"`
	CreditAllocs []model.CreditAllocation `json:"creditAllocations,omitempty"`
	Notes        string                   `json:"notes,omitempty"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	tx, err := s.deps.Transactions.Create(r.Context(), actorFrom(r.Context()), transactions.CreateInput{
		StationID:    req.StationID,
		Date:         req.Date,
		ReadingIDs:   req.ReadingIDs,
		Payment:      req.Payment,
		CreditAllocs: req.CreditAllocs,
		Notes:        req.Notes,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, tx)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
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
	list, err := s.deps.Transactions.List(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request) {
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
	summary, err := s.deps.Transactions.Summarize(r.Context(), actorFrom(r.Context()), stationID, from, to)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	tx, err := s.deps.Transactions.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, tx)
}

type updateTransactionRequest struct {
	Payment *model.PaymentBreakdown `json:"payment,omitempty"`
	Notes   *string                 `json:"notes,omitempty"`
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req updateTransactionRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	tx, err := s.deps.Transactions.Update(r.Context(), actorFrom(r.Context()), id, transactions.UpdateInput{
		Payment: req.Payment,
		Notes:   req.Notes,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, tx)
}

type cancelTransactionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleCancelTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req cancelTransactionRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			respondErr(w, r, s.logger, err)
			return
		}
	}
	tx, err := s.deps.Transactions.Cancel(r.Context(), actorFrom(r.Context()), id, req.Reason)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, tx)
}
