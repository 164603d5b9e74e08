package service

import (
	"errors"
	"fmt"
	"time"

	"manas-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
)

// TokenAuthenticator mints and verifies the stateless JWTs used by both the
// REST API and the streaming endpoint. Verification is signature plus expiry
// only; there is no revocation list and no store round-trip.
type TokenAuthenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenAuthenticator(secret string, ttl time.Duration) *TokenAuthenticator {
	return &TokenAuthenticator{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the given user.
func (a *TokenAuthenticator) Issue(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(a.ttl)
	claims := &models.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Authenticate verifies a raw token string and returns the identity it
// carries. Callers decide what to do with a failure: reject the connection or
// downgrade to an anonymous identity.
func (a *TokenAuthenticator) Authenticate(raw string) (models.Identity, error) {
	if raw == "" {
		return models.Identity{}, ErrTokenMissing
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, ErrTokenExpired
		}
		return models.Identity{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return models.Identity{}, ErrTokenMalformed
	}

	return models.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
