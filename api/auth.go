package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/security"
	"github.com/peertalk/peertalk/service/worker"
	"gorm.io/gorm"
)

// User data return to client
type UserData struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Role  db.Role `json:"role"`
}

// Struct holds both access token and refresh token
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Response struct after login
type AuthResponse struct {
	UserData UserData `json:"user"`
	Tokens   Tokens   `json:"tokens"`
}

// Helper to issue an access/refresh token pair for an account
func (server *Server) issueTokens(user *db.User) (*Tokens, error) {
	accessToken, err := server.jwtService.CreateToken(
		user.ID, user.Role, security.AccessToken, int(user.TokenVersion),
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := server.jwtService.CreateToken(
		user.ID, user.Role, security.RefreshToken, int(user.TokenVersion),
	)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Handler for registering a new account. Registration always creates a
// USER account; the counselor account comes from seeding.
func (server *Server) HandleRegister(ctx *gin.Context) {
	// Get the request body and validate
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"Invalid request body"})
		return
	}

	// Refuse duplicated emails
	var existing db.User
	result := server.queries.DB.Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		ctx.JSON(http.StatusConflict, ErrorResponse{"Email already registered"})
		return
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		server.logger.Error("POST /api/auth/register: failed to check email", "error", result.Error)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	// Hash the password before storing
	hashed, err := security.BcryptHash(req.Password)
	if err != nil {
		server.logger.Error("POST /api/auth/register: failed to hash password", "error", err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	user := db.User{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashed,
		Role:         db.RoleUser,
		TokenVersion: 1,
	}
	result = server.queries.DB.Create(&user)
	if result.Error != nil {
		server.logger.Error("POST /api/auth/register: failed to create account", "error", result.Error)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	tokens, err := server.issueTokens(&user)
	if err != nil {
		server.logger.Error("POST /api/auth/register: failed to create JWT tokens", "error", err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	ctx.JSON(http.StatusCreated, AuthResponse{
		UserData: UserData{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
		Tokens: *tokens,
	})

	// Send the welcome email in the background
	if server.distributor != nil {
		err = server.distributor.DistributeTaskSendWelcomeEmail(context.Background(), worker.WelcomeEmailPayload{
			Email: user.Email,
			Name:  user.Name,
		})
		if err != nil {
			server.logger.Error("POST /api/auth/register: failed to create task: send welcome email", "error", err)
		}
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Handler for logging in with email and password
func (server *Server) HandleLogin(ctx *gin.Context) {
	// Get the request body and validate
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, ErrorResponse{"Invalid request body"})
		return
	}

	// Fetch the account by email
	var user db.User
	result := server.queries.DB.Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusUnauthorized, ErrorResponse{"Invalid email or password"})
			return
		}

		server.logger.Error("POST /api/auth/login: failed to fetch account", "error", result.Error)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	// Compare the password with the stored hash
	if !security.BcryptCompare(user.Password, req.Password) {
		ctx.JSON(http.StatusUnauthorized, ErrorResponse{"Invalid email or password"})
		return
	}

	tokens, err := server.issueTokens(&user)
	if err != nil {
		server.logger.Error("POST /api/auth/login: failed to create JWT tokens", "error", err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, AuthResponse{
		UserData: UserData{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
		Tokens: *tokens,
	})
}

// Handler for exchanging a refresh token for a fresh token pair
func (server *Server) HandleRefreshToken(ctx *gin.Context) {
	claims, _ := ctx.Get(claimsKey)
	requesterID := claims.(*security.CustomClaims).ID

	var user db.User
	result := server.queries.DB.First(&user, requesterID)
	if result.Error != nil {
		server.logger.Error("POST /api/auth/token/refresh: failed to fetch account", "error", result.Error)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	tokens, err := server.issueTokens(&user)
	if err != nil {
		server.logger.Error("POST /api/auth/token/refresh: failed to create JWT tokens", "error", err)
		ctx.JSON(http.StatusInternalServerError, ErrorResponse{"Internal server error"})
		return
	}

	ctx.JSON(http.StatusOK, tokens)
}
