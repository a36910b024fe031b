package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

func TestSanitizeStripsCredentialKeys(t *testing.T) {
	in := map[string]any{
		"email":         "owner@example.com",
		"password":      "hunter2",
		"PasswordHash":  "$2a$10$...",
		"password_hash": "$2a$10$...",
		"apiToken":      "abc",
		"clientSecret":  "def",
		"credential":    "ghi",
		"name":          "Asha",
	}
	out := Sanitize(in)
	require.Equal(t, map[string]any{
		"email": "owner@example.com",
		"name":  "Asha",
	}, out)

	// The input map is untouched.
	require.Contains(t, in, "password")
}

func TestSanitizeRecursesIntoNestedMaps(t *testing.T) {
	out := Sanitize(map[string]any{
		"profile": map[string]any{
			"name":     "Asha",
			"password": "hunter2",
		},
	})
	require.Equal(t, map[string]any{
		"profile": map[string]any{"name": "Asha"},
	}, out)
}

func TestSanitizeNil(t *testing.T) {
	require.Nil(t, Sanitize(nil))
}

func TestBuildDefaultsAndActor(t *testing.T) {
	actor := &model.User{ID: uuid.New(), Email: "mgr@example.com", Role: model.RoleManager}
	stationID := uuid.New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	row := Entry{
		Actor:      actor,
		IP:         "10.1.2.3",
		StationID:  &stationID,
		Action:     "creditor_created",
		EntityType: "creditor",
		NewValues:  map[string]any{"name": "x", "token": "leak"},
		Success:    true,
	}.Build(now)

	require.Equal(t, model.SeverityInfo, row.Severity)
	require.Equal(t, model.CategoryGeneral, row.Category)
	require.Equal(t, &actor.ID, row.UserID)
	require.Equal(t, "mgr@example.com", row.UserEmail)
	require.Equal(t, model.RoleManager, row.UserRole)
	require.Equal(t, now, row.CreatedAt)
	require.NotContains(t, row.NewValues, "token")
}

func TestBuildWithoutActor(t *testing.T) {
	row := Entry{Action: "login_failed", Success: false, Error: "bad credentials"}.Build(time.Now())
	require.Nil(t, row.UserID)
	require.Equal(t, "bad credentials", row.ErrorMessage)
}
