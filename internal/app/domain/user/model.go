// Package user defines actor accounts and their role hierarchy.
package user

import "time"

// Role is an actor's position in the scoping hierarchy.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleDeveloper  Role = "Developer"
	RoleAssistant  Role = "Assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleDeveloper, RoleAssistant:
		return true
	}
	return false
}

// User is an authenticated actor. PasswordHash is never serialized.
// DeveloperID links an Assistant back to the Developer that owns it.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CompanyName  string    `json:"companyName,omitempty"`
	Role         Role      `json:"role"`
	DeveloperID  string    `json:"developerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
