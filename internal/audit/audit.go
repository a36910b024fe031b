// Package audit builds the append-only log rows emitted by every write.
// Entries are persisted inside the same database transaction as the write
// they describe; this package only constructs and sanitizes them.
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// sensitiveKeys never appear in oldValues/newValues.
var sensitiveKeys = []string{"password", "passwordhash", "password_hash", "credential", "secret", "token"}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// Sanitize strips credentials from a snapshot map, recursing into nested
// maps. The input is not modified.
func Sanitize(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if sensitive(k) {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			out[k] = Sanitize(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// Entry builds one audit row for a successful write by the given actor.
type Entry struct {
	Actor      *model.User
	IP         string
	UserAgent  string
	StationID  *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	OldValues  map[string]any
	NewValues  map[string]any
	Category   model.AuditCategory
	Severity   model.AuditSeverity
	Success    bool
	Error      string
	Desc       string
}

// Build materializes the entry into a model row with sanitized snapshots.
func (e Entry) Build(now time.Time) *model.AuditLog {
	row := &model.AuditLog{
		ID:           uuid.New(),
		StationID:    e.StationID,
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		OldValues:    Sanitize(e.OldValues),
		NewValues:    Sanitize(e.NewValues),
		Description:  e.Desc,
		IP:           e.IP,
		UserAgent:    e.UserAgent,
		Severity:     e.Severity,
		Category:     e.Category,
		Success:      e.Success,
		ErrorMessage: e.Error,
		CreatedAt:    now,
	}
	if row.Severity == "" {
		row.Severity = model.SeverityInfo
	}
	if row.Category == "" {
		row.Category = model.CategoryGeneral
	}
	if e.Actor != nil {
		id := e.Actor.ID
		row.UserID = &id
		row.UserEmail = e.Actor.Email
		row.UserRole = e.Actor.Role
	}
	return row
}
