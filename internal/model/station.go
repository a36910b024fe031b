package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FuelType is deliberately an open string set; new fuels appear without a
// schema change.
type FuelType string

const (
	FuelPetrol        FuelType = "petrol"
	FuelDiesel        FuelType = "diesel"
	FuelPremiumPetrol FuelType = "premium_petrol"
	FuelPremiumDiesel FuelType = "premium_diesel"
	FuelCNG           FuelType = "cng"
	FuelLPG           FuelType = "lpg"
	FuelEVCharging    FuelType = "ev_charging"
)

// Station is the multi-tenant unit. Every scoped read and write resolves to
// a station id.
type Station struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Code    string    `json:"code"`
	OwnerID uuid.UUID `json:"ownerId"`
	Brand   string    `json:"brand,omitempty"`
	Address string    `json:"address,omitempty"`
	Phone   string    `json:"phone,omitempty"`

	// Per-station policy flags.
	ShiftRequiredForReading bool `json:"shiftRequiredForReading"`
	MissedReadingAlertDays  int  `json:"missedReadingAlertDays"`

	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PumpStatus tracks whether a dispenser can sell.
type PumpStatus string

const (
	PumpActive   PumpStatus = "active"
	PumpRepair   PumpStatus = "repair"
	PumpInactive PumpStatus = "inactive"
)

// Pump is a physical dispenser. PumpNumber is unique within the station.
type Pump struct {
	ID         uuid.UUID  `json:"id"`
	StationID  uuid.UUID  `json:"stationId"`
	Name       string     `json:"name"`
	PumpNumber int        `json:"pumpNumber"`
	Serial     string     `json:"serial,omitempty"`
	Status     PumpStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Nozzle is a single fuel outlet with a cumulative-volume meter.
// LastReading/LastReadingDate are caches maintained by the reading engine.
type Nozzle struct {
	ID             uuid.UUID        `json:"id"`
	PumpID         uuid.UUID        `json:"pumpId"`
	StationID      uuid.UUID        `json:"stationId"`
	NozzleNumber   int              `json:"nozzleNumber"`
	FuelType       FuelType         `json:"fuelType"`
	Status         PumpStatus       `json:"status"`
	InitialReading *decimal.Decimal `json:"initialReading,omitempty"`
	LastReading    *decimal.Decimal `json:"lastReading,omitempty"`
	LastReadingAt  *Date            `json:"lastReadingDate,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// FuelPrice is the selling price effective from a date. Unique on
// (station, fuelType, effectiveFrom); the lookup takes the latest
// effectiveFrom on or before the reading date.
type FuelPrice struct {
	ID            uuid.UUID        `json:"id"`
	StationID     uuid.UUID        `json:"stationId"`
	FuelType      FuelType         `json:"fuelType"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	CostPrice     *decimal.Decimal `json:"costPrice,omitempty"`
	EffectiveFrom Date             `json:"effectiveFrom"`
	CreatedAt     time.Time        `json:"createdAt"`
}
