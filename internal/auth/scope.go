package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// Actor is the authenticated caller plus request metadata carried into
// audit rows.
type Actor struct {
	User      *model.User
	IP        string
	UserAgent string
}

// Scope is the set of stations a user may touch. All=true means every
// station (super_admin only).
type Scope struct {
	All      bool
	Stations []uuid.UUID
}

// Contains reports whether the scope covers the station.
func (s Scope) Contains(stationID uuid.UUID) bool {
	if s.All {
		return true
	}
	for _, id := range s.Stations {
		if id == stationID {
			return true
		}
	}
	return false
}

// OwnershipStore is the slice of persistence the resolver needs.
type OwnershipStore interface {
	StationIDsOwnedBy(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

// Authorizer is what engines depend on; *Resolver implements it.
type Authorizer interface {
	StationScope(ctx context.Context, user *model.User) (Scope, error)
	AssertStation(ctx context.Context, user *model.User, stationID uuid.UUID) error
}

// Resolver applies the role + ownership scope rule to every request.
type Resolver struct {
	store OwnershipStore
}

func NewResolver(store OwnershipStore) *Resolver {
	return &Resolver{store: store}
}

// StationScope resolves the stations visible to the user.
func (r *Resolver) StationScope(ctx context.Context, user *model.User) (Scope, error) {
	switch user.Role {
	case model.RoleSuperAdmin:
		return Scope{All: true}, nil
	case model.RoleOwner:
		ids, err := r.store.StationIDsOwnedBy(ctx, user.ID)
		if err != nil {
			return Scope{}, apperr.Wrap(apperr.KindInternal, err, "resolve owned stations")
		}
		return Scope{Stations: ids}, nil
	case model.RoleManager, model.RoleEmployee:
		if user.StationID == nil {
			return Scope{}, nil
		}
		return Scope{Stations: []uuid.UUID{*user.StationID}}, nil
	}
	return Scope{}, nil
}

// AssertStation fails with UNAUTHORIZED_STATION when the station is outside
// the caller's scope.
func (r *Resolver) AssertStation(ctx context.Context, user *model.User, stationID uuid.UUID) error {
	scope, err := r.StationScope(ctx, user)
	if err != nil {
		return err
	}
	if !scope.Contains(stationID) {
		return apperr.Coded(apperr.KindForbidden, apperr.CodeUnauthorizedStation,
			"station is outside your scope")
	}
	return nil
}
