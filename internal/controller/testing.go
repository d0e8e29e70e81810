package controller

import (
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/simulation"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Testing exposes the failure-injection harness: a mutable simulation config
// plus endpoints whose behavior depends on it. No production handler reads
// this state.
type Testing struct {
	sim *simulation.Service
}

func NewTesting(sim *simulation.Service) *Testing {
	return &Testing{sim: sim}
}

var configDescription = gin.H{
	"authFailureRate":      "Percentage of auth requests that will fail (0-1)",
	"networkDelayMs":       "Artificial delay added to responses (milliseconds)",
	"networkFailureRate":   "Percentage of requests that will randomly fail (0-1)",
	"validationStrictness": "Validation level: 'normal', 'strict', 'loose'",
}

const rateLimitNote = "Rate limiting has been disabled for this API"

// GetConfig returns the current simulation parameters.
func (h *Testing) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":      h.sim.Snapshot(),
		"description": configDescription,
		"note":        rateLimitNote,
	})
}

// UpdateConfig applies a partial update. Out-of-range values are clamped
// rather than rejected, and unknown strictness levels are ignored.
func (h *Testing) UpdateConfig(c *gin.Context) {
	var patch simulation.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	cfg := h.sim.Update(patch)
	c.JSON(http.StatusOK, gin.H{
		"message": "Test configuration updated successfully",
		"config":  cfg,
		"note":    rateLimitNote,
	})
}

// testClaims is the payload of harness-minted tokens. These tokens carry a
// synthetic subject and are not tied to a database user.
type testClaims struct {
	Username  string `json:"username"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func signTestToken(c *gin.Context, tokenType string, ttl time.Duration) (string, bool) {
	secret := config.GetJWTSecret(c.Request.Context())
	if secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfiguration"})
		return "", false
	}
	claims := testClaims{
		Username:  "testuser",
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "999",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign token"})
		return "", false
	}
	return token, true
}

// FlakyLogin is a mock login that fails randomly at the configured rate.
// Only the fixed testuser/testpass credentials succeed.
func (h *Testing) FlakyLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	if h.sim.ShouldFailAuth() {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":  "Authentication failed",
			"type":   "auth_simulation",
			"reason": "Simulated authentication failure",
		})
		return
	}

	if body.Username != "testuser" || body.Password != "testpass" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, ok := signTestToken(c, "test", 5*time.Minute)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"token":     token,
		"expiresIn": "5 minutes",
		"type":      "test_token",
	})
}

// ShortToken mints a token expiring in 1-300 seconds, for expiry-handling
// tests.
func (h *Testing) ShortToken(c *gin.Context) {
	var body struct {
		ExpiresInSeconds *int `json:"expiresInSeconds"`
	}
	// An empty body is fine; the default expiry applies.
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	expiry := 30
	if body.ExpiresInSeconds != nil {
		expiry = *body.ExpiresInSeconds
	}
	if expiry < 1 {
		expiry = 1
	}
	if expiry > 300 {
		expiry = 300
	}

	token, ok := signTestToken(c, "short_lived", time.Duration(expiry)*time.Second)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":          "Short-lived token created",
		"token":            token,
		"expiresInSeconds": expiry,
		"expiresAt":        time.Now().Add(time.Duration(expiry) * time.Second),
	})
}

// ProtectedResource requires a valid bearer token and may still reject it
// at the configured auth failure rate.
func (h *Testing) ProtectedResource(c *gin.Context) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if header == "" || len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return
	}

	secret := config.GetJWTSecret(c.Request.Context())
	var claims testClaims
	token, err := jwt.ParseWithClaims(parts[1], &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token"})
		return
	}

	if h.sim.ShouldFailAuth() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":  "Token randomly rejected",
			"type":   "auth_simulation",
			"reason": "Simulated token rejection",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Access granted to protected resource",
		"user":      gin.H{"userId": claims.Subject, "username": claims.Username, "type": claims.TokenType},
		"timestamp": time.Now(),
		"resource":  "sensitive_data_here",
	})
}

var (
	strictEmailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	normalEmailRe = regexp.MustCompile(`\S+@\S+\.\S+`)
	phoneRe       = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,15}$`)
	nameCharsRe   = regexp.MustCompile(`[^a-zA-Z\s\-']`)
)

type profileInput struct {
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Age   *float64 `json:"age"`
	Phone string   `json:"phone"`
	Bio   string   `json:"bio"`
}

// ValidateProfile validates a profile body, enforcing rules that depend on
// the configured strictness level.
func (h *Testing) ValidateProfile(c *gin.Context) {
	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	strictness := h.sim.Snapshot().ValidationStrictness
	var errs []string

	switch strictness {
	case simulation.StrictnessStrict:
		if len(in.Name) < 2 || len(in.Name) > 50 {
			errs = append(errs, "Name must be between 2-50 characters")
		}
		if in.Email == "" || !strictEmailRe.MatchString(in.Email) {
			errs = append(errs, "Valid email address is required")
		}
		if in.Age == nil || *in.Age < 13 || *in.Age > 120 {
			errs = append(errs, "Age must be between 13-120")
		}
		if in.Phone != "" && !phoneRe.MatchString(in.Phone) {
			errs = append(errs, "Phone number format is invalid")
		}
		if len(in.Bio) > 500 {
			errs = append(errs, "Bio cannot exceed 500 characters")
		}
		if in.Name != "" && nameCharsRe.MatchString(in.Name) {
			errs = append(errs, "Name contains invalid characters")
		}
	case simulation.StrictnessLoose:
		if in.Name == "" {
			errs = append(errs, "Name is required")
		}
		if in.Email == "" {
			errs = append(errs, "Email is required")
		}
	default:
		if in.Name == "" || len(in.Name) > 100 {
			errs = append(errs, "Name is required and must be under 100 characters")
		}
		if in.Email == "" || !normalEmailRe.MatchString(in.Email) {
			errs = append(errs, "Valid email is required")
		}
		if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
			errs = append(errs, "Age must be between 0-150")
		}
	}

	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":        "Validation failed",
			"errors":       errs,
			"strictness":   strictness,
			"receivedData": in,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Profile validation passed",
		"profile":    in,
		"strictness": strictness,
		"timestamp":  time.Now(),
	})
}
