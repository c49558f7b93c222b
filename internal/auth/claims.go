package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const TokenTypeAccess TokenType = "access"

// Claims are the only supported JWT claims shape for this service.
// Company is the caller's tenant; BPO staff tokens leave it empty and may see every tenant.
// Permissions add to the role defaults in internal/rbac.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id"`
	Company     string    `json:"company,omitempty"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

// Identity returns the caller identity carried by the claims.
func (c Claims) Identity() Identity {
	return Identity{
		UserID:      c.UserID,
		Company:     c.Company,
		Role:        c.Role,
		Permissions: c.Permissions,
	}
}
