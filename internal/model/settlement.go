package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementStatus progresses draft -> final -> locked. A locked settlement
// cannot be edited and its readings cannot be reassigned.
type SettlementStatus string

const (
	SettlementDraft  SettlementStatus = "draft"
	SettlementFinal  SettlementStatus = "final"
	SettlementLocked SettlementStatus = "locked"
)

// EmployeeShortfall records one employee's cash shortfall within a
// settlement.
type EmployeeShortfall struct {
	Name      string          `json:"name"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Count     int             `json:"count"`
}

// Settlement is the owner-side end-of-day reconciliation of expected versus
// actual cash, online, and credit.
type Settlement struct {
	ID        uuid.UUID `json:"id"`
	StationID uuid.UUID `json:"stationId"`
	Date      Date      `json:"date"`

	ExpectedCash decimal.Decimal `json:"expectedCash"`
	ActualCash   decimal.Decimal `json:"actualCash"`
	Variance     decimal.Decimal `json:"variance"`

	// Employee-reported triple.
	ReportedCash   decimal.Decimal `json:"reportedCash"`
	ReportedOnline decimal.Decimal `json:"reportedOnline"`
	ReportedCredit decimal.Decimal `json:"reportedCredit"`

	// Owner-confirmed values and per-channel variances.
	ConfirmedOnline decimal.Decimal `json:"confirmedOnline"`
	ConfirmedCredit decimal.Decimal `json:"confirmedCredit"`
	OnlineVariance  decimal.Decimal `json:"onlineVariance"`
	CreditVariance  decimal.Decimal `json:"creditVariance"`

	Status      SettlementStatus             `json:"status"`
	FinalizedAt *time.Time                   `json:"finalizedAt,omitempty"`
	FinalizedBy *uuid.UUID                   `json:"finalizedBy,omitempty"`
	ReadingIDs  []uuid.UUID                  `json:"readingIds,omitempty"`
	Shortfalls  map[string]EmployeeShortfall `json:"employeeShortfalls,omitempty"` // keyed by user id

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
