package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTokenClaims represents the typed JWT that carries a client session id.
type SessionTokenClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}
