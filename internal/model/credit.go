package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Creditor is a deferred-payment customer of one station. CurrentBalance is
// a cache of sum(credits) - sum(settlements), recomputed inside the same
// transaction as every credit write.
type Creditor struct {
	ID           uuid.UUID `json:"id"`
	StationID    uuid.UUID `json:"stationId"`
	Name         string    `json:"name"`
	BusinessName string    `json:"businessName,omitempty"`
	Phone        string    `json:"phone,omitempty"`

	CreditLimit      decimal.Decimal `json:"creditLimit"`
	CreditPeriodDays int             `json:"creditPeriodDays"`
	CurrentBalance   decimal.Decimal `json:"currentBalance"`

	Aging0To30   decimal.Decimal `json:"aging0_30"`
	Aging31To60  decimal.Decimal `json:"aging31_60"`
	Aging61To90  decimal.Decimal `json:"aging61_90"`
	AgingOver90  decimal.Decimal `json:"agingOver90"`

	LastTransactionDate *Date `json:"lastTransactionDate,omitempty"`
	LastPaymentDate     *Date `json:"lastPaymentDate,omitempty"`

	IsFlagged  bool   `json:"isFlagged"`
	FlagReason string `json:"flagReason,omitempty"`
	IsActive   bool   `json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreditTransactionType distinguishes a new credit from a settlement
// payment against outstanding credit.
type CreditTransactionType string

const (
	CreditTypeCredit     CreditTransactionType = "credit"
	CreditTypeSettlement CreditTransactionType = "settlement"
)

// CreditTransaction is one ledger entry for a creditor.
type CreditTransaction struct {
	ID         uuid.UUID             `json:"id"`
	StationID  uuid.UUID             `json:"stationId"`
	CreditorID uuid.UUID             `json:"creditorId"`
	Type       CreditTransactionType `json:"type"`
	Amount     decimal.Decimal       `json:"amount"`

	FuelType      *FuelType        `json:"fuelType,omitempty"`
	Litres        *decimal.Decimal `json:"litres,omitempty"`
	PricePerLitre *decimal.Decimal `json:"pricePerLitre,omitempty"`
	ReadingID     *uuid.UUID       `json:"readingId,omitempty"`
	// TransactionID is set when the entry was created by a daily
	// transaction's credit allocation; cancelling that transaction
	// removes the entry.
	TransactionID *uuid.UUID `json:"transactionId,omitempty"`

	InvoiceNumber   string    `json:"invoiceNumber,omitempty"`
	VehicleNumber   string    `json:"vehicleNumber,omitempty"`
	TransactionDate Date      `json:"transactionDate"`
	EnteredBy       uuid.UUID `json:"enteredBy"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CreditSettlementLink allocates part of a settlement transaction to one
// original credit invoice. Sum of links per credit never exceeds the credit
// amount; sum per settlement never exceeds the settlement amount.
type CreditSettlementLink struct {
	ID             uuid.UUID       `json:"id"`
	SettlementTxID uuid.UUID       `json:"settlementTransactionId"`
	CreditTxID     uuid.UUID       `json:"creditTransactionId"`
	Amount         decimal.Decimal `json:"allocatedAmount"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// AgingBuckets is the outstanding-credit distribution by age.
type AgingBuckets struct {
	Bucket0To30  decimal.Decimal `json:"aging0_30"`
	Bucket31To60 decimal.Decimal `json:"aging31_60"`
	Bucket61To90 decimal.Decimal `json:"aging61_90"`
	BucketOver90 decimal.Decimal `json:"agingOver90"`
}
