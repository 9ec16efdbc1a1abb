package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ioclens/config"
	"ioclens/core"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "ioclens"

// Claims represents the session token claims
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// generateSessionToken signs a session token for user
func generateSessionToken(user *core.User, cfg *config.Config) (string, *Claims, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Auth.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    sessionIssuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

// parseSessionToken validates signature, issuer and lifetime of a session token
func parseSessionToken(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" || claims.UserID <= 0 {
		return nil, errors.New("token is missing session identity")
	}
	return claims, nil
}

// validateSession parses a token and rejects revoked sessions
func (a *API) validateSession(tokenString string) (*Claims, error) {
	claims, err := parseSessionToken(tokenString, a.config.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	if a.isSessionRevoked(claims.ID) {
		return nil, errors.New("token has been revoked")
	}
	return claims, nil
}

// generateJTI generates a unique JWT ID for token revocation with 256-bit entropy
func generateJTI() (string, error) {
	return randomHex(32)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// revokeSession blacklists the session until its natural expiration.
// Entries leave the cache after the maximum session lifetime.
func (a *API) revokeSession(claims *Claims) {
	expiry := time.Now().Add(a.config.Auth.JWTExpiry)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	a.revokedSessions.Add(claims.ID, expiry)
}

// isSessionRevoked checks if a session JTI has been revoked
func (a *API) isSessionRevoked(jti string) bool {
	expiry, ok := a.revokedSessions.Get(jti)
	if !ok {
		return false
	}
	return time.Now().Before(expiry)
}
