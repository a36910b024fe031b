package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a station-level operating cost entry. ExpenseMonth is derived
// from Date at write time so monthly rollups never re-parse dates.
type Expense struct {
	ID            uuid.UUID       `json:"id"`
	StationID     uuid.UUID       `json:"stationId"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          Date            `json:"date"`
	ExpenseMonth  string          `json:"expenseMonth"` // YYYY-MM
	ReceiptNumber string          `json:"receiptNumber,omitempty"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	EnteredBy     uuid.UUID       `json:"enteredBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}
