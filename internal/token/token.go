// Package token issues and verifies the signed bearer tokens that carry a
// caller's identity. Tokens are HS256 JWTs with a fixed lifetime; there is no
// refresh or rotation.
package token

import (
	"errors"
	"fmt"
	"time"

	"recuerdamed/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("token: invalid or expired token")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the verified subject of a request. Handlers pass it explicitly
// into every domain call; nothing reads it from ambient state.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

type Issuer struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

func NewIssuer(cfg config.TokenConfig) *Issuer {
	return &Issuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		lifetime: cfg.Lifetime,
	}
}

func (i *Issuer) Issue(identity Identity) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Role: identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("token: failed to sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(raw string) (Identity, error) {
	var identity Identity

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return identity, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return identity, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return identity, ErrInvalidToken
	}

	identity.UserID = userID
	identity.Role = claims.Role
	return identity, nil
}
