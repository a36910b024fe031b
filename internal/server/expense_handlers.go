package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/expenses"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type createExpenseRequest struct {
	StationID     uuid.UUID       `json:"stationId"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          model.Date      `json:"date"`
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	exp, err := s.deps.Expenses.Create(r.Context(), actorFrom(r.Context()), expenses.CreateInput{
		StationID:     req.StationID,
		Category:      req.Category,
		Description:   req.Description,
		Amount:        req.Amount,
		Date:          req.Date,
		ReceiptNumber: req.ReceiptNumber,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, exp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	list, err := s.deps.Expenses.List(r.Context(), actorFrom(r.Context()), stationID, r.URL.Query().Get("month"))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	summary, err := s.deps.Expenses.Summarize(r.Context(), actorFrom(r.Context()), stationID, r.URL.Query().Get("month"))
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, summary)
}
