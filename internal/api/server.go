// Package api exposes the suggestion engine over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/health"
	"github.com/condition-suggestion-engine/internal/middleware"
	"github.com/condition-suggestion-engine/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	service       *service.SuggestionService
	health        *health.Checker
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. checker may be nil.
func NewServer(configManager domain.ConfigManager, svc *service.SuggestionService, checker *health.Checker, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if checker == nil {
		checker = health.NewChecker(Version, 0)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	if cfg.Server.RateLimit > 0 {
		router.Use(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, logger).Middleware())
	}
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		service:       svc,
		health:        checker,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/combinations", s.handleListCombinations)

		conditions := v1.Group("/conditions")
		conditions.POST("/detect", s.handleDetect)
		conditions.POST("/validate", s.handleValidate)
		conditions.POST("/filter", s.handleFilter)
		conditions.POST("/separate", s.handleSeparate)

		analyses := v1.Group("/analyses")
		analyses.POST("/parameters", s.handleAnalyzeParameters)
		analyses.POST("/report-types", s.handleAnalyzeReportTypes)

		v1.POST("/feedback", s.handleRecordFeedback)
		v1.GET("/members/:member_id/feedback", s.handleMemberFeedback)
	}
}

// handleHealth reports aggregated component health
func (s *Server) handleHealth(c *gin.Context) {
	status := s.health.Check(c.Request.Context())

	code := http.StatusOK
	if status.Overall == health.StateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) respondError(c *gin.Context, status int, code, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationKey)))
}

// bindJSON decodes the body and answers 400 on failure.
func (s *Server) bindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		code := domain.ErrorCode(err, domain.ErrInvalidInput)
		s.respondError(c, domain.StatusForCode(code), code, "Malformed request body", err)
		return false
	}
	return true
}
