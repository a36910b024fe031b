package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// AuditRows returns a station's audit trail, newest first. The table is
// append-only; this is the only read path.
func (s *Store) AuditRows(ctx context.Context, stationID uuid.UUID, from, to model.Date, limit int) ([]*model.AuditLog, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, user_email, user_role, station_id, action,
		       entity_type, entity_id, old_values, new_values, description,
		       ip, user_agent, severity, category, success, error_message,
		       created_at
		FROM audit_logs
		WHERE station_id = $1
		  AND created_at >= $2
		  AND created_at < $3 + INTERVAL '1 day'
		ORDER BY created_at DESC
		LIMIT $4`,
		stationID, dateArg(from), dateArg(to), limit)
	if err != nil {
		return nil, fmt.Errorf("list audit rows: %w", err)
	}
	defer rows.Close()

	var out []*model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		var role, severity, category string
		var oldJSON, newJSON []byte
		err := rows.Scan(&e.ID, &e.UserID, &e.UserEmail, &role, &e.StationID,
			&e.Action, &e.EntityType, &e.EntityID, &oldJSON, &newJSON,
			&e.Description, &e.IP, &e.UserAgent, &severity, &category,
			&e.Success, &e.ErrorMessage, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.UserRole = model.Role(role)
		e.Severity = model.AuditSeverity(severity)
		e.Category = model.AuditCategory(category)
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &e.OldValues); err != nil {
				return nil, fmt.Errorf("decode audit old values: %w", err)
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &e.NewValues); err != nil {
				return nil, fmt.Errorf("decode audit new values: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
