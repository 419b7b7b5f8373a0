package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/service/chat"
	"github.com/peertalk/peertalk/service/notify"
	"github.com/peertalk/peertalk/service/security"
	"github.com/peertalk/peertalk/service/worker"
	"github.com/peertalk/peertalk/util"
)

type Server struct {
	mux     *gin.Engine
	queries *db.Queries
	chats   *chat.Service

	limiter     *RateLimiter
	jwtService  *security.JWTService
	oauth       OAuth
	distributor worker.TaskDistributor
	hub         *notify.Hub

	config *util.Config
	logger *slog.Logger
}

func NewServer(
	queries *db.Queries,
	config *util.Config,
	hub *notify.Hub,
	distributor worker.TaskDistributor,
	logger *slog.Logger,
) *Server {
	// Create dependency
	jwtService := security.NewJWTService(config)
	oauth := NewGoogleAuth(queries, jwtService, config, logger)

	return &Server{
		mux:     gin.Default(),
		queries: queries,
		chats:   chat.NewService(queries, logger),

		limiter:     NewRateLimiter(config.MaxRequest, config.RefillRate),
		jwtService:  jwtService,
		oauth:       oauth,
		distributor: distributor,
		hub:         hub,

		config: config,
		logger: logger,
	}
}

type ErrorResponse struct {
	Message string `json:"error"`
}

// Helper method to register handler to route
func (server *Server) RegisterHandler() {
	// Setup global middlewares
	server.mux.Use(server.CORSMiddlware(), server.RateLimitingMiddleware())

	api := server.mux.Group("/api")
	{
		// Auth routes
		api.POST("/auth/register", server.HandleRegister)
		api.POST("/auth/login", server.HandleLogin)
		api.POST("/auth/token/refresh", server.AuthMiddleware(), server.HandleRefreshToken)
		api.GET("/oauth", server.oauth.HandleOAuth)

		// Chat routes: start-or-resume and the message thread allow
		// anonymous callers, so the session here is optional
		api.POST("/chat/start", server.SessionMiddleware(), server.HandleStartChat)
		api.GET("/chat/messages", server.SessionMiddleware(), server.HandleGetMessages)
		api.POST("/chat/messages", server.SessionMiddleware(), server.HandleSendMessage)

		// Counselor-only routes
		api.POST("/chat/read", server.AuthMiddleware(), server.HandleMarkRead)
		api.POST("/chat/close", server.AuthMiddleware(), server.HandleCloseChat)
		api.GET("/counselor/chats", server.AuthMiddleware(), server.HandleCounselorChats)
		api.GET("/counselor/notifications", server.AuthMiddleware(), server.SSEHandler)
	}

	// Callback URL for OAuth2
	server.mux.GET("/oauth2/callback", server.oauth.HandleCallback)
}

// Method to start the server
func (server *Server) Start() error {
	server.RegisterHandler()
	return server.mux.Run(":8080")
}
