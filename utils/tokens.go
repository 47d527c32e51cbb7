package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenClaims are carried by gateway session tokens. Subject is the
// session id.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type Manager struct {
	signingKey string
	now        func() time.Time
}

func NewManager(signingKey string) (*Manager, error) {
	if signingKey == "" {
		return nil, errors.New("empty signing key")
	}

	return &Manager{signingKey: signingKey, now: time.Now}, nil
}

func (m *Manager) NewJWT(sessionID, role string, ttl time.Duration) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}
	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Role: role,
		StandardClaims: jwt.StandardClaims{
			Subject:   sessionID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	})

	return token.SignedString([]byte(m.signingKey))
}

// Parse verifies the signature and expiry and returns the claims.
func (m *Manager) Parse(accessToken string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.signingKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
