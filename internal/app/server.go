// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dishrent_backend/internal/config"
	"dishrent_backend/internal/jobs"
	"dishrent_backend/internal/location"
	"dishrent_backend/internal/middleware"
	platformElasticsearch "dishrent_backend/internal/platform/elasticsearch"
	"dishrent_backend/internal/shared"
	"dishrent_backend/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	reconcileJob *jobs.ProfileReconcileJob

	// ESClient is nil when the directory index is disabled.
	ESClient  *platformElasticsearch.ESClientWrapper
	AppLogger *zap.Logger
}

// NewRouter builds the gin engine with every route and middleware. The identity provider
// verifies ID tokens and roles resolves the caller's profile role.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	userHandler *user.Handler,
	locationHandler *location.Handler,
	idp shared.TokenVerifier,
	roles shared.ProfileRoleLookup,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig()))

	configMW := middleware.RequireConfig(cfg, logger.Named("ConfigMiddleware"))
	adminMW := middleware.AdminAuthMiddleware(idp, roles, logger.Named("AdminAuthMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Dishrent admin API is healthy!"})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/client-config", clientConfigHandler(cfg))
	userHandler.RegisterRoutes(v1, configMW, adminMW)
	locationHandler.RegisterRoutes(v1, adminMW)

	return router
}

// corsConfig allows any origin with the headers browser clients of the admin endpoint send.
func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	c.AllowAllOrigins = true
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type", middleware.RequestIDHeader}
	c.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	c.OptionsResponseStatusCode = http.StatusOK
	return c
}

// clientConfigHandler exposes only the public credential. The service account key never
// leaves this process.
func clientConfigHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"firebase_api_key": cfg.FirebaseWebAPIKey,
			"firebase_project": cfg.FirebaseProjectID,
		})
	}
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	router *gin.Engine,
	reconcileJob *jobs.ProfileReconcileJob,
	esClient *platformElasticsearch.ESClientWrapper,
) *Server {
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ServerTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:   httpServer,
		router:       router,
		cfg:          cfg,
		logger:       logger,
		reconcileJob: reconcileJob,
		ESClient:     esClient,
		AppLogger:    logger,
	}
}

// Router exposes the engine for in-process tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Start() error {
	if s.reconcileJob != nil {
		if err := s.reconcileJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start profile reconcile job", zap.Error(err))
		}
	} else {
		s.logger.Info("Profile reconcile job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.reconcileJob != nil {
		s.reconcileJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
