package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds teacher credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Teacher     Teacher   `json:"teacher"`
}

// JWTClaims represents the JWT payload for teacher access tokens.
type JWTClaims struct {
	TeacherID int64  `json:"teacher_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}
