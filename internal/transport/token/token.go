// Package token issues and verifies the bearer tokens of relay clients.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
)

const issuer = "stockrush-relay"

var ErrInvalid = errors.New("invalid token")

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a token for clientID, valid for the issuer ttl.
func (i *Issuer) Issue(clientID string) (string, error) {
	if clientID == "" {
		return "", fmt.Errorf("client id is required")
	}

	now := time.Now()
	claims := jwt.StandardClaims{
		Id:        uuid.New().String(),
		Subject:   clientID,
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its client id.
func (i *Issuer) Verify(raw string) (string, error) {
	var claims jwt.StandardClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !tok.Valid || claims.Subject == "" || claims.Issuer != issuer {
		return "", ErrInvalid
	}

	return claims.Subject, nil
}
