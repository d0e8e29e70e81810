package middleware

import (
	"database/sql"
	"net/http"
	"strings"

	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userKey = "user"

// RequestID attaches a request-scoped logger carrying a generated id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithRequestID(c.Request.Context(), uuid.New().String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by the auth middleware,
// or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func parseToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if auth == "" || !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}

func resolveUser(c *gin.Context, users *repository.UserRepo, tokenStr string) (*models.User, int, string) {
	ctx := c.Request.Context()
	secret := config.GetJWTSecret(ctx)
	if secret == "" {
		return nil, http.StatusInternalServerError, "Server misconfiguration"
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		logger.Debug(ctx, "JWT parse failed", "error", err)
		return nil, http.StatusForbidden, "Invalid or expired token"
	}
	// Load the user to ensure the account still exists.
	user, err := users.GetByID(ctx, claims.Subject)
	if err == sql.ErrNoRows {
		return nil, http.StatusForbidden, "User not found"
	}
	if err != nil {
		logger.Error(ctx, "Auth user lookup failed", "error", err)
		return nil, http.StatusInternalServerError, "Authentication error"
	}
	return user, 0, ""
}

// AuthRequired rejects requests without a valid bearer token for an existing
// user. Missing token yields 401; an invalid token or vanished user, 403.
func AuthRequired(users *repository.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := parseToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
			return
		}
		user, status, msg := resolveUser(c, users, tokenStr)
		if user == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// AuthOptional resolves the caller when a valid token is present and
// continues anonymously otherwise.
func AuthOptional(users *repository.UserRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := parseToken(c)
		if !ok {
			c.Next()
			return
		}
		if user, _, _ := resolveUser(c, users, tokenStr); user != nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}
