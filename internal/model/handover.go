package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HandoverType is one hop in the cash-movement chain. Each hop (other than
// shift_collection) requires a confirmed predecessor of the preceding type.
type HandoverType string

const (
	HandoverShiftCollection   HandoverType = "shift_collection"
	HandoverEmployeeToManager HandoverType = "employee_to_manager"
	HandoverManagerToOwner    HandoverType = "manager_to_owner"
	HandoverDepositToBank     HandoverType = "deposit_to_bank"
)

// HandoverStatus is the per-hop confirmation state machine. confirmed and
// resolved are terminal.
type HandoverStatus string

const (
	HandoverPending   HandoverStatus = "pending"
	HandoverConfirmed HandoverStatus = "confirmed"
	HandoverDisputed  HandoverStatus = "disputed"
	HandoverResolved  HandoverStatus = "resolved"
)

// RequiredPredecessor returns the handover type that must be confirmed
// before one of type t may be created, or "" when none is required.
func (t HandoverType) RequiredPredecessor() HandoverType {
	switch t {
	case HandoverEmployeeToManager:
		return HandoverShiftCollection
	case HandoverManagerToOwner:
		return HandoverEmployeeToManager
	case HandoverDepositToBank:
		return HandoverManagerToOwner
	}
	return ""
}

// CashHandover tracks one hop of physical cash with its confirmation,
// variance, and dispute state.
type CashHandover struct {
	ID        uuid.UUID    `json:"id"`
	StationID uuid.UUID    `json:"stationId"`
	Type      HandoverType `json:"type"`
	Date      Date         `json:"date"`

	FromUserID *uuid.UUID `json:"fromUserId,omitempty"` // nil for bank deposits
	ToUserID   *uuid.UUID `json:"toUserId,omitempty"`   // nil for bank deposits

	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
	ActualAmount   decimal.Decimal `json:"actualAmount"`
	Difference     decimal.Decimal `json:"difference"`

	PreviousHandoverID *uuid.UUID `json:"previousHandoverId,omitempty"`
	ShiftID            *uuid.UUID `json:"shiftId,omitempty"`

	Status          HandoverStatus `json:"status"`
	ConfirmedBy     *uuid.UUID     `json:"confirmedBy,omitempty"`
	ConfirmedAt     *time.Time     `json:"confirmedAt,omitempty"`
	DisputeNotes    string         `json:"disputeNotes,omitempty"`
	ResolutionNotes string         `json:"resolutionNotes,omitempty"`
	ResolvedBy      *uuid.UUID     `json:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time     `json:"resolvedAt,omitempty"`

	// Bank deposit fields; required before a deposit_to_bank can leave
	// pending.
	BankName         string `json:"bankName,omitempty"`
	DepositReference string `json:"depositReference,omitempty"`
	ReceiptURL       string `json:"receiptUrl,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
