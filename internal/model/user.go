package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the four-level access model. Managers and employees are scoped to
// a single station; owners to the stations they own.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleOwner, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// User is a platform account.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	StationID    *uuid.UUID `json:"stationId,omitempty"` // managers and employees
	PlanID       *uuid.UUID `json:"planId,omitempty"`    // owners
	CreatedBy    *uuid.UUID `json:"createdBy,omitempty"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Plan encodes a subscription profile: resource ceilings, monthly quotas,
// retention windows, and feature flags. A retention of -1 means unlimited.
type Plan struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`

	MaxStations        int `json:"maxStations"`
	MaxPumpsPerStation int `json:"maxPumpsPerStation"`
	MaxNozzlesPerPump  int `json:"maxNozzlesPerPump"`
	MaxEmployees       int `json:"maxEmployees"`
	MaxCreditors       int `json:"maxCreditors"`

	MonthlyExports       int `json:"monthlyExports"`
	MonthlyReports       int `json:"monthlyReports"`
	MonthlyManualEntries int `json:"monthlyManualEntries"`

	SalesRetentionDays       int `json:"salesRetentionDays"`
	ProfitRetentionDays      int `json:"profitRetentionDays"`
	AnalyticsRetentionDays   int `json:"analyticsRetentionDays"`
	AuditRetentionDays       int `json:"auditRetentionDays"`
	TransactionRetentionDays int `json:"transactionRetentionDays"`

	BackdatedDays int `json:"backdatedDays"`

	CanExport         bool `json:"canExport"`
	CanTrackExpenses  bool `json:"canTrackExpenses"`
	CanTrackCredits   bool `json:"canTrackCredits"`
	CanViewProfitLoss bool `json:"canViewProfitLoss"`

	CreatedAt time.Time `json:"createdAt"`
}

// RetentionUnlimited marks a retention window with no cutoff.
const RetentionUnlimited = -1
