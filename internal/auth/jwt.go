// Package auth verifies the bearer tokens issued by the portal's login service and
// describes the scopes they carry. The portal does not log users in itself: it only
// resolves the principal of each request.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is the iss claim of portal tokens.
	Issuer = "portalad"

	// SecretEnv names the variable holding the HMAC signing secret.
	SecretEnv = "PORTAL_JWT_SECRET"

	defaultTTL   = time.Hour
	clockLeeway  = 30 * time.Second
	minSecretLen = 32
)

var (
	// ErrNoSecret is returned outside development mode when SecretEnv is unset.
	ErrNoSecret = errors.New(SecretEnv + " must be set; generate one with: openssl rand -hex 32")

	// ErrNoUserID is returned for tokens that do not name a user.
	ErrNoUserID = errors.New("token has no user_id")
)

var secret struct {
	once  sync.Once
	value []byte
	err   error
}

// Claims is the payload of a portal token.
type Claims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Granted returns the token scopes, or DefaultScopes when the token carries none.
func (c *Claims) Granted() []string {
	if len(c.Scopes) == 0 {
		return DefaultScopes()
	}
	return c.Scopes
}

// ValidateJWTSecret loads the signing secret once. Development mode (DEV_MODE=true or
// GIN_MODE=debug) falls back to a random per-process secret. Call it at startup so a
// missing secret fails the process before it serves traffic.
func ValidateJWTSecret() error {
	secret.once.Do(func() {
		value := os.Getenv(SecretEnv)
		switch {
		case value != "":
			if len(value) < minSecretLen {
				slog.Warn("jwt secret is shorter than recommended", "min_length", minSecretLen)
			}
			secret.value = []byte(value)
		case devMode():
			buf := make([]byte, 32)
			if _, err := rand.Read(buf); err != nil {
				secret.err = fmt.Errorf("failed to generate development secret: %w", err)
				return
			}
			secret.value = []byte(hex.EncodeToString(buf))
			slog.Warn("jwt secret not set, using a random development secret; tokens will not survive a restart")
		default:
			secret.err = ErrNoSecret
		}
	})
	return secret.err
}

func devMode() bool {
	dev := os.Getenv("DEV_MODE")
	return dev == "true" || dev == "1" || os.Getenv("GIN_MODE") == "debug"
}

func signingKey() ([]byte, error) {
	if err := ValidateJWTSecret(); err != nil {
		return nil, err
	}
	return secret.value, nil
}

// GenerateJWT signs a token for userID. The login service issues the same shape; this
// is used by auditctl and tests. A zero ttl means one hour.
func GenerateJWT(userID, email string, scopes []string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrNoUserID
	}
	if ttl == 0 {
		ttl = defaultTTL
	}
	key, err := signingKey()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ValidateJWT verifies signature, issuer and expiry and returns the claims.
func ValidateJWT(raw string) (*Claims, error) {
	key, err := signingKey()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockLeeway),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrNoUserID
	}
	return claims, nil
}
