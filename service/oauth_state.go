package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const stateTTL = 10 * time.Minute

// StateSigner issues and checks the signed state parameter of the login flow
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStateSigner creates a signer using an HMAC key
func NewStateSigner(key []byte) *StateSigner {
	return &StateSigner{key: key, ttl: stateTTL, now: time.Now}
}

// Issue returns a short-lived signed state token
func (s *StateSigner) Issue() (string, error) {
	if len(s.key) == 0 {
		return "", errors.New("state signing key not set")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// Verify checks the signature and expiry of a state token
func (s *StateSigner) Verify(state string) error {
	if state == "" {
		return fmt.Errorf("%w: missing", ErrInvalidState)
	}

	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}
