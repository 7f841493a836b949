// Package policy decides what an authenticated actor may see and do.
package policy

import (
	"context"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/property"
	"github.com/taimoor511/certiqas-backend/internal/app/domain/user"
	"github.com/taimoor511/certiqas-backend/internal/app/storage"
)

// Actor is the authenticated caller as carried in the request token.
type Actor struct {
	UserID      string
	Role        user.Role
	Email       string
	DeveloperID string
}

// Scope is the visibility an actor has over certificate records and
// developer-affiliated resources.
type Scope struct {
	Unrestricted  bool
	DeveloperName string
	DeveloperID   string
}

// AllowsProperty reports whether cert is visible under this scope.
func (s Scope) AllowsProperty(cert property.Certificate) bool {
	return s.Unrestricted || cert.DeveloperName == s.DeveloperName
}

// Policy resolves actor permissions. It needs user lookups to map developer
// accounts to the company name records are filed under.
type Policy struct {
	users storage.UserStore
}

// New creates a Policy backed by users.
func New(users storage.UserStore) *Policy {
	return &Policy{users: users}
}

// CanSubmit reports whether the actor may submit certification requests.
func (p *Policy) CanSubmit(actor Actor) bool {
	switch actor.Role {
	case user.RoleSuperAdmin, user.RoleDeveloper, user.RoleAssistant:
		return true
	}
	return false
}

// CanDecide reports whether the actor may approve or reject submissions.
func (p *Policy) CanDecide(actor Actor) bool {
	return actor.Role == user.RoleSuperAdmin
}

// ScopeFor resolves the record visibility of the actor. Developers see records
// filed under their own company, assistants see their linked developer's
// records, admins see everything.
func (p *Policy) ScopeFor(ctx context.Context, actor Actor) (Scope, error) {
	switch actor.Role {
	case user.RoleSuperAdmin:
		return Scope{Unrestricted: true}, nil

	case user.RoleDeveloper:
		u, err := p.users.GetUser(ctx, actor.UserID)
		if err != nil {
			return Scope{}, apperr.Unauthorized("account no longer exists")
		}
		return Scope{DeveloperName: u.CompanyName, DeveloperID: u.ID}, nil

	case user.RoleAssistant:
		if actor.DeveloperID == "" {
			return Scope{}, apperr.Unauthorized("assistant account has no linked developer")
		}
		dev, err := p.users.GetUser(ctx, actor.DeveloperID)
		if err != nil {
			return Scope{}, apperr.Unauthorized("linked developer no longer exists")
		}
		return Scope{DeveloperName: dev.CompanyName, DeveloperID: dev.ID}, nil
	}
	return Scope{}, apperr.Forbidden("role %q may not access records", actor.Role)
}
