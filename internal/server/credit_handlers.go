package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/credit"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

type creditorRequest struct {
	StationID        uuid.UUID       `json:"stationId"`
	Name             string          `json:"name"`
	BusinessName     string          `json:"businessName,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	CreditPeriodDays int             `json:"creditPeriodDays"`
}

func (s *Server) handleCreateCreditor(w http.ResponseWriter, r *http.Request) {
	var req creditorRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	c, err := s.deps.Credit.CreateCreditor(r.Context(), actorFrom(r.Context()), credit.CreditorInput{
		StationID:        req.StationID,
		Name:             req.Name,
		BusinessName:     req.BusinessName,
		Phone:            req.Phone,
		CreditLimit:      req.CreditLimit,
		CreditPeriodDays: req.CreditPeriodDays,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, c)
}

type creditorUpdateRequest struct {
	Name             *string          `json:"name,omitempty"`
	BusinessName     *string          `json:"businessName,omitempty"`
	Phone            *string          `json:"phone,omitempty"`
	CreditLimit      *decimal.Decimal `json:"creditLimit,omitempty"`
	CreditPeriodDays *int             `json:"creditPeriodDays,omitempty"`
	IsActive         *bool            `json:"isActive,omitempty"`
	IsFlagged        *bool            `json:"isFlagged,omitempty"`
	FlagReason       *string          `json:"flagReason,omitempty"`
}

func (s *Server) handleUpdateCreditor(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	var req creditorUpdateRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	c, err := s.deps.Credit.UpdateCreditor(r.Context(), actorFrom(r.Context()), id, credit.CreditorUpdate{
		Name:             req.Name,
		BusinessName:     req.BusinessName,
		Phone:            req.Phone,
		CreditLimit:      req.CreditLimit,
		CreditPeriodDays: req.CreditPeriodDays,
		IsActive:         req.IsActive,
		IsFlagged:        req.IsFlagged,
		FlagReason:       req.FlagReason,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, c)
}

func (s *Server) handleListCreditors(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	list, err := s.deps.Credit.ListCreditors(r.Context(), actorFrom(r.Context()), stationID, activeOnly)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) handleCreditorAging(w http.ResponseWriter, r *http.Request) {
	stationID, err := queryUUID(r, "station_id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	report, err := s.deps.Credit.Aging(r.Context(), actorFrom(r.Context()), stationID)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, report)
}

type ledgerResponse struct {
	Creditor     *model.Creditor            `json:"creditor"`
	Transactions []*model.CreditTransaction `json:"transactions"`
}

func (s *Server) handleCreditorLedger(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	creditor, txs, err := s.deps.Credit.Ledger(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, ledgerResponse{Creditor: creditor, Transactions: txs})
}

type recordCreditRequest struct {
	CreditorID      uuid.UUID        `json:"creditorId"`
	Amount          decimal.Decimal  `json:"amount"`
	FuelType        *model.FuelType  `json:"fuelType,omitempty"`
	Litres          *decimal.Decimal `json:"litres,omitempty"`
	PricePerLitre   *decimal.Decimal `json:"pricePerLitre,omitempty"`
	ReadingID       *uuid.UUID       `json:"readingId,omitempty"`
	InvoiceNumber   string           `json:"invoiceNumber,omitempty"`
	VehicleNumber   string           `json:"vehicleNumber,omitempty"`
	TransactionDate model.Date       `json:"transactionDate"`
}

func (s *Server) handleRecordCredit(w http.ResponseWriter, r *http.Request) {
	var req recordCreditRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	tx, err := s.deps.Credit.RecordCredit(r.Context(), actorFrom(r.Context()), credit.CreditInput{
		CreditorID:      req.CreditorID,
		Amount:          req.Amount,
		FuelType:        req.FuelType,
		Litres:          req.Litres,
		PricePerLitre:   req.PricePerLitre,
		ReadingID:       req.ReadingID,
		InvoiceNumber:   req.InvoiceNumber,
		VehicleNumber:   req.VehicleNumber,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, tx)
}

type linkSpecRequest struct {
	CreditTxID uuid.UUID       `json:"creditTransactionId"`
	Amount     decimal.Decimal `json:"amount"`
}

type recordCreditSettlementRequest struct {
	CreditorID      uuid.UUID         `json:"creditorId"`
	Amount          decimal.Decimal   `json:"amount"`
	TransactionDate model.Date        `json:"transactionDate"`
	InvoiceNumber   string            `json:"invoiceNumber,omitempty"`
	Links           []linkSpecRequest `json:"links,omitempty"`
}

type creditSettlementResponse struct {
	Transaction *model.CreditTransaction     `json:"transaction"`
	Links       []*model.CreditSettlementLink `json:"links"`
}

func (s *Server) handleRecordCreditSettlement(w http.ResponseWriter, r *http.Request) {
	var req recordCreditSettlementRequest
	if err := decode(r, &req); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	in := credit.SettlementInput{
		CreditorID:      req.CreditorID,
		Amount:          req.Amount,
		TransactionDate: req.TransactionDate,
		InvoiceNumber:   req.InvoiceNumber,
	}
	for _, l := range req.Links {
		in.Links = append(in.Links, credit.LinkSpec{CreditTxID: l.CreditTxID, Amount: l.Amount})
	}
	tx, links, err := s.deps.Credit.RecordSettlement(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusCreated, creditSettlementResponse{Transaction: tx, Links: links})
}

func (s *Server) handleDeleteCreditTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	if err := s.deps.Credit.DeleteTransaction(r.Context(), actorFrom(r.Context()), id); err != nil {
		respondErr(w, r, s.logger, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"deleted": true})
}
