// Package http provides the HTTP adapter for the application layer. It is a
// thin translation layer: authentication and user administration live in
// front of it, so handlers trust the caller-supplied actor identifiers.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lahah11/finale-anesp-sub000/internal/application/service"
	"github.com/lahah11/finale-anesp-sub000/internal/application/workflow"
	"github.com/lahah11/finale-anesp-sub000/internal/export"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     Logger
}

// NewServer creates a new HTTP server wired to the application services
func NewServer(
	config ServerConfig,
	missions service.MissionService,
	engine workflow.Engine,
	documents service.DocumentService,
	logistics *service.LogisticsService,
	exporter *export.RegisterExporter,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config: config,
		router: gin.New(),
		logger: logger,
	}

	server.router.Use(gin.Recovery())
	server.router.Use(server.loggingMiddleware())

	handlers := NewHandlers(missions, engine, documents, logistics, exporter, logger)
	server.setupRoutes(handlers)

	return server
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes(handlers *Handlers) {
	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/missions", handlers.CreateMission)
		api.GET("/missions", handlers.ListMissions)
		api.GET("/missions/export", handlers.ExportRegister)
		api.GET("/missions/:id", handlers.GetMission)
		api.GET("/missions/:id/participants", handlers.GetParticipants)
		api.GET("/missions/:id/status", handlers.GetMissionStatus)

		api.POST("/missions/:id/validate/technical", handlers.ValidateTechnical)
		api.POST("/missions/:id/logistics", handlers.AssignLogistics)
		api.POST("/missions/:id/validate/finance", handlers.ValidateFinance)
		api.POST("/missions/:id/validate/final", handlers.ValidateFinal)
		api.POST("/missions/:id/resubmit", handlers.Resubmit)

		api.POST("/missions/:id/documents", handlers.UploadDocuments)
		api.POST("/missions/:id/verify", handlers.VerifyAndClose)

		api.GET("/vehicles/available", handlers.AvailableVehicles)
		api.GET("/drivers/available", handlers.AvailableDrivers)
	}
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
