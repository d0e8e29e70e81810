package controller

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Auth handles registration, login and the current-user endpoint.
type Auth struct {
	users *repository.UserRepo
}

func NewAuth(users *repository.UserRepo) *Auth {
	return &Auth{users: users}
}

// SignToken mints a bearer token whose subject is the user id.
func SignToken(ctx context.Context, userID string) (string, error) {
	cfg := config.Get()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.JWTTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// Register creates an account and returns the profile with a fresh token.
func (a *Auth) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Username  string  `json:"username"`
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if body.Username == "" || body.Email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username, email and password are required"})
		return
	}

	taken, err := a.users.Taken(ctx, body.Username, body.Email, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), config.Get().BcryptCost)
	if err != nil {
		logger.Error(ctx, "Password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	user := &models.User{
		Username:  body.Username,
		Email:     body.Email,
		Password:  string(hashed),
		FirstName: body.FirstName,
		LastName:  body.LastName,
	}
	if err := a.users.Create(ctx, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	token, err := SignToken(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "Token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// Login verifies credentials (username or email) and returns a token.
func (a *Auth) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	user, err := a.users.GetCredentials(ctx, body.Username)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(body.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := SignToken(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "Token signing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// Me returns the caller's profile with todo counts.
func (a *Auth) Me(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	counts, err := a.users.TodoCounts(ctx, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"todo_stats": counts,
	})
}
