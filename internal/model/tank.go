package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TankTrackingMode controls whether the tank blocks sales.
type TankTrackingMode string

const (
	TrackingStrict   TankTrackingMode = "strict"
	TrackingWarning  TankTrackingMode = "warning"
	TrackingDisabled TankTrackingMode = "disabled"
)

// TankStatus classifies the current level against thresholds.
type TankStatus string

const (
	TankNegative TankStatus = "negative"
	TankEmpty    TankStatus = "empty"
	TankCritical TankStatus = "critical"
	TankLow      TankStatus = "low"
	TankOverflow TankStatus = "overflow"
	TankNormal   TankStatus = "normal"
)

// Tank is on-site fuel storage. CurrentLevel may go negative when the owner
// missed recording a refill; that state is surfaced, not hidden.
type Tank struct {
	ID        uuid.UUID `json:"id"`
	StationID uuid.UUID `json:"stationId"`
	FuelType  FuelType  `json:"fuelType"`
	Name      string    `json:"name,omitempty"`
	FuelName  string    `json:"fuelName,omitempty"` // owner-friendly label

	Capacity     decimal.Decimal `json:"capacity"`
	CurrentLevel decimal.Decimal `json:"currentLevel"`

	// Thresholds are absolute litres or a percentage of capacity;
	// absolute wins when both are set.
	LowLevelLitres       *decimal.Decimal `json:"lowLevelWarning,omitempty"`
	LowLevelPercent      *decimal.Decimal `json:"lowLevelPercent,omitempty"`
	CriticalLevelLitres  *decimal.Decimal `json:"criticalLevelWarning,omitempty"`
	CriticalLevelPercent *decimal.Decimal `json:"criticalLevelPercent,omitempty"`

	LevelAfterLastRefill *decimal.Decimal `json:"levelAfterLastRefill,omitempty"`
	LastRefillDate       *Date            `json:"lastRefillDate,omitempty"`
	LastRefillAmount     *decimal.Decimal `json:"lastRefillAmount,omitempty"`

	LastDipReading *decimal.Decimal `json:"lastDipReading,omitempty"`
	LastDipDate    *Date            `json:"lastDipDate,omitempty"`

	TrackingMode  TankTrackingMode `json:"trackingMode"`
	AllowNegative bool             `json:"allowNegative"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RefillEntryType distinguishes deliveries from corrections.
type RefillEntryType string

const (
	RefillDelivery   RefillEntryType = "refill"
	RefillAdjustment RefillEntryType = "adjustment"
	RefillCorrection RefillEntryType = "correction"
	RefillInitial    RefillEntryType = "initial"
)

// TankRefill records fuel entering (or, for corrections, leaving) a tank.
// Litres is non-zero; negative values are corrections.
type TankRefill struct {
	ID        uuid.UUID `json:"id"`
	TankID    uuid.UUID `json:"tankId"`
	StationID uuid.UUID `json:"stationId"` // denormalized

	Litres     decimal.Decimal  `json:"litres"`
	RefillDate Date             `json:"refillDate"`
	RefillTime string           `json:"refillTime,omitempty"` // HH:MM:SS
	CostPerLitre *decimal.Decimal `json:"costPerLitre,omitempty"`
	TotalCost    *decimal.Decimal `json:"totalCost,omitempty"`

	Supplier      string `json:"supplier,omitempty"`
	InvoiceNumber string `json:"invoiceNumber,omitempty"`
	VehicleNumber string `json:"vehicleNumber,omitempty"`
	DriverName    string `json:"driverName,omitempty"`

	// Operator-verified levels around the delivery.
	TankLevelBefore *decimal.Decimal `json:"tankLevelBefore,omitempty"`
	TankLevelAfter  *decimal.Decimal `json:"tankLevelAfter,omitempty"`

	EntryType  RefillEntryType `json:"entryType"`
	Backdated  bool            `json:"backdated"`
	Verified   bool            `json:"verified"`
	VerifiedBy *uuid.UUID      `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time      `json:"verifiedAt,omitempty"`

	EnteredBy uuid.UUID `json:"enteredBy"`
	CreatedAt time.Time `json:"createdAt"`
}
