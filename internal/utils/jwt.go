package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for malformed, tampered or unverifiable tokens.
var ErrInvalidToken = errors.New("invalid token")

// TokenPayload is the identity carried inside an access token.
type TokenPayload struct {
	UserID             uuid.UUID
	RegistrationNumber string
	PhoneNumber        string
	Role               string
}

// TokenClaims is the signed JWT body.
type TokenClaims struct {
	UserID             string `json:"_id"`
	RegistrationNumber string `json:"registrationNumber"`
	PhoneNumber        string `json:"phoneNumber"`
	Role               string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for the provided identity.
func GenerateToken(secret string, payload TokenPayload, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}

	now := time.Now()
	claims := &TokenClaims{
		UserID:             payload.UserID.String(),
		RegistrationNumber: payload.RegistrationNumber,
		PhoneNumber:        payload.PhoneNumber,
		Role:               payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token signature and expiry and returns its claims.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return claims, nil
}

// ID returns the parsed user id; ParseToken has already validated it.
func (c *TokenClaims) ID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}
