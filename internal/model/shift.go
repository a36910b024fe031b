package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShiftStatus is the lifecycle of an employee work interval.
type ShiftStatus string

const (
	ShiftActive    ShiftStatus = "active"
	ShiftEnded     ShiftStatus = "ended"
	ShiftCancelled ShiftStatus = "cancelled"
)

// Shift is an employee work interval at a station. Ending a shift
// aggregates the employee's readings and seeds a shift_collection handover.
type Shift struct {
	ID         uuid.UUID `json:"id"`
	StationID  uuid.UUID `json:"stationId"`
	EmployeeID uuid.UUID `json:"employeeId"`
	Date       Date      `json:"date"`
	StartTime  string    `json:"startTime"`          // HH:MM:SS
	EndTime    string    `json:"endTime,omitempty"`  // HH:MM:SS
	ShiftType  string    `json:"shiftType,omitempty"`

	OpeningCash     decimal.Decimal `json:"openingCash"`
	CashCollected   decimal.Decimal `json:"cashCollected"`
	OnlineCollected decimal.Decimal `json:"onlineCollected"`
	CreditGiven     decimal.Decimal `json:"creditGiven"`
	ExpectedCash    decimal.Decimal `json:"expectedCash"`
	CashDifference  decimal.Decimal `json:"cashDifference"`

	ReadingsCount    int             `json:"readingsCount"`
	TotalLitresSold  decimal.Decimal `json:"totalLitresSold"`
	TotalSalesAmount decimal.Decimal `json:"totalSalesAmount"`

	Status    ShiftStatus `json:"status"`
	EndedBy   *uuid.UUID  `json:"endedBy,omitempty"`
	Notes     string      `json:"notes,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
