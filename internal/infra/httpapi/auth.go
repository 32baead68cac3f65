package httpapi

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Roles carried in the "role" claim.
const (
	// RoleReporter may file reports, attach files and read the directory.
	RoleReporter = "reporter"
	// RoleStaff may also read, search, export and update every report.
	RoleStaff = "staff"
	// RoleAdmin may also edit the directory. The static API token acts as admin.
	RoleAdmin = "admin"
)

const (
	apiKeyHeader    = "X-API-Key"
	claimsKey       = "auth_claims"
	apiTokenSubject = "api-token"
)

// AuthOptions configures request authentication. A request is let through
// when it carries the API token or an HS256 JWT signed with JWTSecret.
type AuthOptions struct {
	JWTSecret []byte
	APIToken  string
	// Disabled skips authentication entirely, for local development.
	Disabled bool
}

// Claims is the JWT payload.
type Claims struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for subject with role, valid for ttl.
func IssueToken(secret []byte, subject, name, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Name: name,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(apiKeyHeader)); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// authenticate resolves the caller's claims or aborts with 401.
func authenticate(opts AuthOptions, log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Disabled {
			c.Set(claimsKey, &Claims{Role: RoleAdmin})
			c.Next()
			return
		}
		token := bearerToken(c)
		if token == "" {
			unauthorized(c, "missing credentials")
			return
		}
		if opts.APIToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(opts.APIToken)) == 1 {
			c.Set(claimsKey, &Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: apiTokenSubject}})
			c.Next()
			return
		}
		if len(opts.JWTSecret) == 0 {
			unauthorized(c, "invalid credentials")
			return
		}

		claims := &Claims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return opts.JWTSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil || !parsed.Valid {
			log.WithError(err).WithField("path", c.Request.URL.Path).Debug("Rejected token")
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireRole lets the request through when the caller holds one of roles.
// Admin passes every check.
func requireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil {
			unauthorized(c, "missing credentials")
			return
		}
		if claims.Role == RoleAdmin || slices.Contains(roles, claims.Role) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func claimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
