package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a dashboard user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse mirrors the contract the dashboard login page expects.
type LoginResponse struct {
	Success bool     `json:"success"`
	User    string   `json:"user"`
	Role    UserRole `json:"role"`
	Token   string   `json:"token,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
