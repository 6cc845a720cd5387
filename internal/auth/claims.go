package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for the operator surface.
type Claims struct {
	jwt.RegisteredClaims

	OperatorID string `json:"operator_id"`
	Role       string `json:"role,omitempty"`
}
