package security

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

const userIDKey = "user_id"

// UserHeader carries the caller's id on deployments that opt in to trusting it
const UserHeader = "X-User-ID"

// Identity resolves the caller. With a secret it requires nothing but verifies any
// bearer token it sees (HS256, "sub" claim). The X-User-ID header is honoured only when
// the operator opts in with WithTrustedUserHeader and no secret is set. Everyone else is
// keyed by client IP.
type Identity struct {
	secret      []byte
	trustHeader bool
}

// IdentityOption configures an Identity
type IdentityOption func(*Identity)

// WithTrustedUserHeader lets callers name themselves with X-User-ID. Only for
// deployments behind a proxy that sets the header itself.
func WithTrustedUserHeader(trust bool) IdentityOption {
	return func(i *Identity) { i.trustHeader = trust }
}

// NewIdentity creates the resolver. An empty secret disables token checks.
func NewIdentity(secret string, opts ...IdentityOption) *Identity {
	i := &Identity{secret: []byte(secret)}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Middleware stores the resolved id in the context
func (i *Identity) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.GetHeader("Authorization")); token != "" && len(i.secret) > 0 {
			userID, err := i.ValidateToken(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
			c.Set(userIDKey, userID)
			c.Next()
			return
		}

		if header := strings.TrimSpace(c.GetHeader(UserHeader)); header != "" && i.trustHeader && len(i.secret) == 0 {
			c.Set(userIDKey, header)
			c.Next()
			return
		}

		c.Set(userIDKey, "ip:"+c.ClientIP())
		c.Next()
	}
}

// UserID returns the id stored by Middleware
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// IssueToken signs a session token for userID
func (i *Identity) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its subject
func (i *Identity) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", errors.New("sub not found in token")
	}
	return subject, nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireAdmin guards operator routes with a static token in X-Admin-Token
func RequireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Token")
		if token == "" || subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
