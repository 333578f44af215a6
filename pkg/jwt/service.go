package jwt

import (
	"time"
)

// Service is a wrapper for JWT operations bound to a secret and expiry
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = 24 * time.Hour // Default to 24 hours
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken signs a token for the given identity claims
func (s *Service) GenerateToken(claims UserClaims) (string, error) {
	return GenerateToken(claims, s.secretKey, s.expiry)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*UserClaims, error) {
	return ValidateToken(tokenString, s.secretKey)
}
