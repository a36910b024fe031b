package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditSeverity is used for retention: critical rows are never purged.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityCritical AuditSeverity = "critical"
)

// AuditCategory groups audit rows for reporting.
type AuditCategory string

const (
	CategoryAuth    AuditCategory = "auth"
	CategoryData    AuditCategory = "data"
	CategoryFinance AuditCategory = "finance"
	CategorySystem  AuditCategory = "system"
	CategoryGeneral AuditCategory = "general"
)

// AuditLog is an append-only record of one write (or auth attempt). Email
// and role are cached so the row survives user deletion. OldValues and
// NewValues are sanitized JSON; credentials never appear.
type AuditLog struct {
	ID         uuid.UUID  `json:"id"`
	UserID     *uuid.UUID `json:"userId,omitempty"` // nil for system actions
	UserEmail  string     `json:"userEmail,omitempty"`
	UserRole   Role       `json:"userRole,omitempty"`
	StationID  *uuid.UUID `json:"stationId,omitempty"`
	Action     string     `json:"action"`
	EntityType string     `json:"entityType"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`

	OldValues   map[string]any `json:"oldValues,omitempty"`
	NewValues   map[string]any `json:"newValues,omitempty"`
	Description string         `json:"description,omitempty"`

	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	Severity     AuditSeverity `json:"severity"`
	Category     AuditCategory `json:"category"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"errorMessage,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
