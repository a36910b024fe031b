package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle of a daily transaction envelope.
type TransactionStatus string

const (
	TransactionDraft     TransactionStatus = "draft"
	TransactionSubmitted TransactionStatus = "submitted"
	TransactionSettled   TransactionStatus = "settled"
	TransactionCancelled TransactionStatus = "cancelled"
)

// PaymentBreakdown declares how a day's sales were paid. The three channels
// must sum to the transaction total within one cent.
type PaymentBreakdown struct {
	Cash   decimal.Decimal `json:"cash"`
	Online decimal.Decimal `json:"online"`
	Credit decimal.Decimal `json:"credit"`
}

// Total is cash + online + credit.
func (p PaymentBreakdown) Total() decimal.Decimal {
	return p.Cash.Add(p.Online).Add(p.Credit)
}

// CreditAllocation assigns part of the credit channel to one creditor.
type CreditAllocation struct {
	CreditorID uuid.UUID       `json:"creditorId"`
	Amount     decimal.Decimal `json:"amount"`
}

// DailyTransaction groups a set of readings into a station-and-date
// envelope declaring how the sales were paid.
type DailyTransaction struct {
	ID              uuid.UUID          `json:"id"`
	StationID       uuid.UUID          `json:"stationId"`
	TransactionDate Date               `json:"transactionDate"`
	TotalLitres     decimal.Decimal    `json:"totalLitres"`
	TotalSaleValue  decimal.Decimal    `json:"totalSaleValue"`
	Payment         PaymentBreakdown   `json:"paymentBreakdown"`
	CreditAllocs    []CreditAllocation `json:"creditAllocations,omitempty"`
	ReadingIDs      []uuid.UUID        `json:"readingIds"`
	Status          TransactionStatus  `json:"status"`
	SettlementID    *uuid.UUID         `json:"settlementId,omitempty"`
	Notes           string             `json:"notes,omitempty"`
	CreatedBy       uuid.UUID          `json:"createdBy"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}
