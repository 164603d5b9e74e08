package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"manas-backend/internal/chat"
	"manas-backend/internal/handler"
	"manas-backend/internal/middleware"
	"manas-backend/internal/models"
	"manas-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// Deps carries the already-wired components the routes need.
type Deps struct {
	Tokens         *service.TokenAuthenticator
	AuthHandler    handler.AuthHandler
	PredictHandler handler.PredictHandler
	AlertHandler   handler.AlertHandler
	ChatHandler    *chat.Handler
}

func NewServer(deps Deps, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router: router,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	// Inference surface
	s.router.POST("/predict", deps.PredictHandler.Predict)
	s.router.GET("/health", deps.PredictHandler.Health)

	// Streaming endpoint
	s.router.GET("/ws/chat", deps.ChatHandler.Serve)

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", deps.AuthHandler.Register)
	authGroup.POST("/login", deps.AuthHandler.Login)

	// Alert review, staff only
	alerts := s.router.Group("/api/alerts")
	alerts.Use(middleware.AuthMiddleware(deps.Tokens, s.logger))
	alerts.Use(middleware.RequireRole(models.RoleCounselor, models.RoleAdmin))
	{
		alerts.GET("", deps.AlertHandler.GetAllAlerts)
		alerts.PUT("/:id/status", deps.AlertHandler.UpdateAlertStatus)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}
