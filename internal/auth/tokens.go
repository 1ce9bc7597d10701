// Package auth holds both sides of authentication: the backend issues and
// verifies HS256 tokens and hashes passwords, the device keeps the session.
package auth

import (
	"fmt"
	"time"

	apperrors "todo-sync/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "todo-backend"

// Claims are the token claims; the subject is the user ID
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenIssuer signs and verifies access tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer signing with secret
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) < 16 {
		return nil, apperrors.NewInvalidInputError("jwt_secret", "<redacted>", "must be at least 16 characters")
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		leeway: 30 * time.Second,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for the user and its expiry
func (i *TokenIssuer) Issue(userID, email, role string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
		Role:  role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and checks signature, issuer and expiry
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(i.leeway),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, apperrors.WrapError(err, apperrors.ErrorTypePermission, "invalid or expired token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.NewPermissionError("verify token", "token without subject")
	}
	return claims, nil
}
