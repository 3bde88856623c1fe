// Package jwtauth validates officer bearer tokens issued by the (external)
// identity layer. Only HS256 validation lives here; token issuance, sessions,
// and 2FA are boundary concerns.
package jwtauth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mirroredkube/tokenops-sub001/internal/platform/middleware"
)

// Validator validates HS256-signed officer tokens.
type Validator struct {
	signingKey []byte
}

// NewValidator creates a Validator with the shared signing key.
func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token, returning the officer claims.
func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	out := &middleware.JWTClaims{VerifierID: sub}
	if org, ok := claims["org"].(string); ok {
		out.OrgID = org
	}
	return out, nil
}
