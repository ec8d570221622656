package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "tonelearn/docs"
	"tonelearn/internal/config"
	"tonelearn/internal/engine"
	"tonelearn/internal/handlers"
	"tonelearn/internal/models"
)

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	config *config.Config
	logger zerolog.Logger
}

// New creates a new server instance
func New(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{
		engine: eng,
		config: eng.Config,
		logger: logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.BodyLimit("50M"))

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	e := s.engine

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(e.DB))
	s.echo.GET("/healthz/index", handlers.IndexHealthHandler(indexChecker(e)))

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// A nil *analytics.Service must not reach the handlers as a non-nil interface
	var tracker handlers.EventTracker
	var summaries handlers.SummaryProvider
	if e.Analytics != nil {
		tracker = e.Analytics
		summaries = e.Analytics
	}

	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))

	users := api.Group("/users/:userID")
	users.POST("/ingest", handlers.IngestHandler(e.Pipeline, tracker, s.logger))
	users.POST("/examples/select", handlers.SelectExamplesHandler(e.Selector, tracker, s.logger))
	users.POST("/patterns/analyze", handlers.AnalyzePatternsHandler(e.Analyzer, tracker, s.logger))
	users.GET("/patterns", handlers.ListProfilesHandler(e.ProfileRepo))
	users.GET("/patterns/:prefType/:target", handlers.GetProfileHandler(e.Analyzer))
	users.DELETE("", handlers.PurgeUserHandler(e.Usage, tracker, s.logger))

	if e.Relationships != nil {
		var credentials handlers.CredentialSaver
		if e.Credentials != nil {
			credentials = e.Credentials
		}
		users.PUT("/account", handlers.AccountHandler(e.Relationships, credentials))
		users.PUT("/relationships", handlers.RelationshipHandler(e.Relationships, e.Detector))
	} else {
		users.PUT("/account", databaseRequired)
		users.PUT("/relationships", databaseRequired)
	}

	api.PUT("/examples/:id/usage", handlers.UsageHandler(e.Usage, tracker))
	api.GET("/analytics/summary", handlers.AnalyticsHandler(summaries, s.logger))
}

func indexChecker(e *engine.Engine) handlers.IndexChecker {
	if checker, ok := e.Index.(handlers.IndexChecker); ok {
		return checker
	}
	return nil
}

func databaseRequired(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "this endpoint requires a database"})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
