package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/chat"
	"github.com/peertalk/peertalk/service/security"
	"gorm.io/gorm"
)

const (
	claimsKey = "claims-key"
)

// Helper to pull the bearer token out of the Authorization header
func bearerToken(ctx *gin.Context) string {
	return strings.TrimSpace(strings.TrimPrefix(ctx.Request.Header.Get("Authorization"), "Bearer"))
}

// verify checks the token signature, its version against the database and
// its type against the endpoint, and stores the claims on success
func (server *Server) verify(ctx *gin.Context, token string) bool {
	// Verify token
	claims, err := server.jwtService.VerifyToken(token)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{"Invalid token: " + err.Error()})
		return false
	}

	// Check if the token version is match with database
	var user db.User
	result := server.queries.DB.First(&user, claims.ID)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{"Invalid token: ID not exists"})
		return false
	}

	if claims.Version != int(user.TokenVersion) {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{"Invalid token: token version not match"})
		return false
	}

	// Check token type
	path := ctx.FullPath()
	tokenType := security.TokenType(claims.TokenType)
	if tokenType != security.AccessToken && tokenType != security.RefreshToken {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{"Invalid token: invalid token type"})
		return false
	}

	// Only the refresh endpoint need refresh token, all endpoint that need authentication need access token
	if path == "/api/auth/token/refresh" && tokenType == security.RefreshToken ||
		path != "/api/auth/token/refresh" && tokenType != security.RefreshToken {
		ctx.Set(claimsKey, claims)
		return true
	}

	ctx.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{"This token type is not suitable for this endpoint"})
	return false
}

// AuthMiddleware rejects requests without a valid bearer token
func (server *Server) AuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{"Missing Bearer token"})
			return
		}

		if server.verify(ctx, token) {
			ctx.Next()
		}
	}
}

// SessionMiddleware lets requests without a token through as anonymous,
// but a token that is present must still be valid
func (server *Server) SessionMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.Next()
			return
		}

		if server.verify(ctx, token) {
			ctx.Next()
		}
	}
}

// Helper to build the service session out of the stored claims. Returns
// nil for anonymous requests.
func sessionFromContext(ctx *gin.Context) *chat.Session {
	value, ok := ctx.Get(claimsKey)
	if !ok {
		return nil
	}
	claims := value.(*security.CustomClaims)
	return &chat.Session{
		UserID: claims.ID,
		Role:   claims.Role,
	}
}

func (server *Server) CORSMiddlware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Writer.Header().Set("Access-Control-Allow-Origin", fmt.Sprintf("http://%s", server.config.BaseURL))
		ctx.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		ctx.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Access-Control-Allow-Headers, Authorization, X-Requested-With")
		ctx.Next()
	}
}

// Rate limiting middleware
func (server *Server) RateLimitingMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !server.limiter.Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{"Too many request at a time"})
			return
		}

		ctx.Next()
	}
}
