package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus is the review state of a reading.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// FlowStatus tracks a reading's progress toward settlement.
type FlowStatus string

const (
	FlowUnsettled         FlowStatus = "unsettled"
	FlowPendingSettlement FlowStatus = "pending_settlement"
	FlowSettled           FlowStatus = "settled"
	FlowCarriedForward    FlowStatus = "carried_forward"
)

// ReadingSource records how the reading entered the system.
type ReadingSource string

const (
	SourceManual ReadingSource = "manual"
	SourceOCR    ReadingSource = "ocr"
)

// WarningMeterReset is attached when a reading value drops below its
// predecessor (meter rollover or replacement).
const WarningMeterReset = "meter_reset"

// NozzleReading is a meter snapshot. Sales are implicit in the difference
// between consecutive readings; LitresSold and TotalAmount are derived at
// creation and never recomputed.
type NozzleReading struct {
	ID        uuid.UUID `json:"id"`
	NozzleID  uuid.UUID `json:"nozzleId"`
	StationID uuid.UUID `json:"stationId"` // denormalized from the nozzle's pump
	PumpID    uuid.UUID `json:"pumpId"`    // denormalized
	FuelType  FuelType  `json:"fuelType"`  // denormalized

	EnteredBy    uuid.UUID       `json:"enteredBy"`
	ReadingDate  Date            `json:"readingDate"`
	ReadingTime  string          `json:"readingTime,omitempty"` // HH:MM:SS
	ReadingValue decimal.Decimal `json:"readingValue"`

	PreviousReadingID    *uuid.UUID       `json:"previousReading,omitempty"`
	PreviousReadingValue *decimal.Decimal `json:"previousReadingValue,omitempty"`
	LitresSold           decimal.Decimal  `json:"litresSold"`
	PricePerLitre        decimal.Decimal  `json:"pricePerLitre"`
	TotalAmount          decimal.Decimal  `json:"totalAmount"`

	// IsInitialReading is always false on sales readings; write attempts
	// are forced to false and audited.
	IsInitialReading bool `json:"isInitialReading"`
	// IsSample marks meter movement with no sale (quality check). Sample
	// readings advance the baseline but never count as revenue.
	IsSample bool `json:"isSample"`

	ApprovalStatus  ApprovalStatus `json:"approvalStatus"`
	ApprovedBy      *uuid.UUID     `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`

	ShiftID       *uuid.UUID `json:"shiftId,omitempty"`
	SettlementID  *uuid.UUID `json:"settlementId,omitempty"`
	TransactionID *uuid.UUID `json:"transactionId,omitempty"`
	FlowStatus    FlowStatus `json:"flowStatus"`

	Source   ReadingSource `json:"source"`
	Notes    string        `json:"notes,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// HasWarning reports whether the reading carries the named warning.
func (r *NozzleReading) HasWarning(w string) bool {
	for _, have := range r.Warnings {
		if have == w {
			return true
		}
	}
	return false
}

// UploadStatus is the lifecycle of an OCR receipt upload.
type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadSuccess    UploadStatus = "success"
	UploadFailed     UploadStatus = "failed"
)

// Upload records one receipt image sent through the OCR flow.
type Upload struct {
	ID           uuid.UUID    `json:"id"`
	StationID    uuid.UUID    `json:"stationId"`
	UploadedBy   uuid.UUID    `json:"uploadedBy"`
	FileURL      string       `json:"fileUrl,omitempty"`
	PumpSerial   string       `json:"pumpSerial,omitempty"`
	Status       UploadStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	ReadingIDs   []uuid.UUID  `json:"readingIds,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
