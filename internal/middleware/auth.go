package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by Auth.
const (
	SubjectKey     = "auth_subject"
	APIKeyHeader   = "X-API-Key"
	tokenIssuer    = "railsim-backend"
	defaultSubject = "api-key"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 12 * time.Hour

// Authenticator checks API keys and signs or verifies HS256 bearer tokens.
type Authenticator struct {
	apiKey string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthenticator creates an authenticator. ttl <= 0 uses DefaultTokenTTL.
func NewAuthenticator(apiKey, secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{apiKey: apiKey, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// CheckAPIKey reports whether key matches the configured API key.
func (a *Authenticator) CheckAPIKey(key string) bool {
	if a.apiKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) == 1
}

// IssueToken signs a token for subject and returns it with its expiry.
func (a *Authenticator) IssueToken(subject string) (string, time.Time, error) {
	if subject == "" {
		subject = defaultSubject
	}
	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken verifies a bearer token and returns its subject.
func (a *Authenticator) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// Auth middleware accepts either X-API-Key or "Authorization: Bearer <jwt>"
func Auth(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(APIKeyHeader); key != "" {
			if !a.CheckAPIKey(key) {
				unauthorized(c, "Invalid API key")
				return
			}
			c.Set(SubjectKey, defaultSubject)
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			unauthorized(c, "Missing credentials")
			return
		}
		subject, err := a.ParseToken(strings.TrimSpace(raw))
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
