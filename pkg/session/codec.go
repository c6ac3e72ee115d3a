package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// Claims carried by the session cookie. The Redis record stays authoritative;
// the token only names the session and lets forged ids be rejected early.
type Claims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec returns a codec bound to secret.
func NewCodec(secret, issuer string) *Codec {
	return &Codec{secret: []byte(secret), issuer: issuer}
}

// Encode returns the signed token for sess.
func (c *Codec) Encode(sess *Session) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("session secret missing")
	}
	claims := Claims{
		SessionID: sess.ID,
		Role:      sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies token and returns its claims.
func (c *Codec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithLeeway(5*time.Second))
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
