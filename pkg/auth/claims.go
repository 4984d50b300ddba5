package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Role is the admin console permission level carried in the token.
type Role string

const (
	// RoleAdmin manages catalog data, tenants and content.
	RoleAdmin Role = "admin"
	// RoleEditor manages CMS content only.
	RoleEditor Role = "editor"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEditor
}

// Allows reports whether r satisfies the required role. Admins satisfy every role.
func (r Role) Allows(required Role) bool {
	return r == RoleAdmin || r == required
}

// AdminClaims represents the typed JWT presented by the admin console.
type AdminClaims struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}
