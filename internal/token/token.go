// Package token issues and verifies the single-use instance tokens that gate
// play completion. A token is an HS256 JWT binding (jig, code, nonce, issued-at);
// the server keeps no state about an issued token until the nonce is consumed
// by the session store.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrBadToken     = errors.New("token: malformed or tampered")
	ErrTokenExpired = errors.New("token: past its instance ttl")
)

// Claims are the logical fields carried by an instance token. CodeID pins
// the token to one code row, not just its index: after the index is reaped
// and reallocated the token must not open the successor code.
type Claims struct {
	Jig       uuid.UUID `json:"jig"`
	CodeID    uuid.UUID `json:"cid"`
	CodeIndex int32     `json:"code"`
	Nonce     uuid.UUID `json:"nonce"`
	jwt.RegisteredClaims
}

// Service mints and verifies instance tokens with a process-wide secret
// loaded at startup.
type Service struct {
	hmac []byte
	ttl  time.Duration
	now  func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{hmac: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Mint issues a fresh token for an active code. The nonce is random per token;
// uniqueness of (code, nonce) is enforced later, at completion time.
func (s *Service) Mint(jig, codeID uuid.UUID, codeIndex int32) (string, Claims, error) {
	now := s.now()
	claims := Claims{
		Jig:       jig,
		CodeID:    codeID,
		CodeIndex: codeIndex,
		Nonce:     uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "playcode",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.hmac)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verify authenticates a token string and returns its claims. Expiry is
// checked against the injected clock so tests stay deterministic.
func (s *Service) Verify(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return s.hmac, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrBadToken
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrBadToken
	}
	if c.Nonce == uuid.Nil || c.CodeID == uuid.Nil || c.CodeIndex < 0 {
		return Claims{}, ErrBadToken
	}
	return *c, nil
}
