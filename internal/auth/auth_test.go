package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	require.True(t, CheckPassword(hash, "s3cret-pass"))
	require.False(t, CheckPassword(hash, "wrong"))
}

func TestHashPasswordRejectsShortInput(t *testing.T) {
	_, err := HashPassword("abc")
	require.Error(t, err)
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	stationID := uuid.New()
	u := &model.User{ID: uuid.New(), Role: model.RoleManager, StationID: &stationID}

	raw, err := issuer.Issue(u, time.Now())
	require.NoError(t, err)

	claims, err := issuer.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)
	require.Equal(t, model.RoleManager, claims.Role)
	require.NotNil(t, claims.StationID)
	require.Equal(t, stationID, *claims.StationID)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	u := &model.User{ID: uuid.New(), Role: model.RoleOwner}

	raw, err := issuer.Issue(u, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = issuer.Parse(raw)
	require.Error(t, err)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	u := &model.User{ID: uuid.New(), Role: model.RoleOwner}
	raw, err := NewTokenIssuer("secret-a", time.Hour).Issue(u, time.Now())
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Parse(raw)
	require.Error(t, err)
	require.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

type fakeOwnership struct {
	owned []uuid.UUID
}

func (f *fakeOwnership) StationIDsOwnedBy(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.owned, nil
}

func TestStationScopeByRole(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()
	resolver := NewResolver(&fakeOwnership{owned: []uuid.UUID{mine}})
	ctx := context.Background()

	admin := &model.User{ID: uuid.New(), Role: model.RoleSuperAdmin}
	scope, err := resolver.StationScope(ctx, admin)
	require.NoError(t, err)
	require.True(t, scope.All)
	require.True(t, scope.Contains(other))

	owner := &model.User{ID: uuid.New(), Role: model.RoleOwner}
	scope, err = resolver.StationScope(ctx, owner)
	require.NoError(t, err)
	require.True(t, scope.Contains(mine))
	require.False(t, scope.Contains(other))

	employee := &model.User{ID: uuid.New(), Role: model.RoleEmployee, StationID: &mine}
	scope, err = resolver.StationScope(ctx, employee)
	require.NoError(t, err)
	require.True(t, scope.Contains(mine))
	require.False(t, scope.Contains(other))

	// Station-scoped users with no station assigned see nothing.
	unassigned := &model.User{ID: uuid.New(), Role: model.RoleManager}
	scope, err = resolver.StationScope(ctx, unassigned)
	require.NoError(t, err)
	require.False(t, scope.Contains(mine))
}

func TestAssertStationOutsideScope(t *testing.T) {
	resolver := NewResolver(&fakeOwnership{})
	owner := &model.User{ID: uuid.New(), Role: model.RoleOwner}

	err := resolver.AssertStation(context.Background(), owner, uuid.New())
	require.Error(t, err)
	require.Equal(t, apperr.CodeUnauthorizedStation, apperr.CodeOf(err))
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
