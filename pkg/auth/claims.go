package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    string
	SessionID string
}

// AccessTokenClaims represents the typed JWT issued to the storefront UI.
// The registered jti carries the session id.
type AccessTokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionID returns the session the token was minted for.
func (c *AccessTokenClaims) SessionID() string {
	return c.ID
}
