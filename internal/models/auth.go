package models

import "github.com/golang-jwt/jwt/v5"

// Actor roles understood by the identity middleware.
const (
	RoleInstructor = "instructor"
	RoleLearner    = "learner"
)

// JWTClaims identifies the calling actor. Token issuance lives outside this
// service; the middleware only verifies and decodes.
type JWTClaims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
