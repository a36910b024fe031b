package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/apperr"
	"github.com/iamramakanthreddyk/fuelsync-new-sub010/internal/model"
)

// Claims is the bearer-token payload.
type Claims struct {
	UserID    uuid.UUID  `json:"userId"`
	Role      model.Role `json:"role"`
	StationID *uuid.UUID `json:"stationId,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates bearer tokens.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), lifetime: lifetime}
}

// Issue creates a signed token for the user.
func (t *TokenIssuer) Issue(u *model.User, now time.Time) (string, error) {
	claims := Claims{
		UserID:    u.ID,
		Role:      u.Role,
		StationID: u.StationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "sign token")
	}
	return signed, nil
}

// Parse validates a signed token and returns its claims.
func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.KindUnauthenticated, "unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.KindUnauthenticated, err, "invalid or expired token")
	}
	return claims, nil
}
