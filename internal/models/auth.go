package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims issued by the composing API after a login
// is admitted by the security core.
type TokenClaims struct {
	Type   string `json:"typ"` // "access" or "refresh"
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
