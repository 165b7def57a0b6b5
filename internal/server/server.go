package server

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/api"
	"github.com/professor93/tgconfig/internal/config"
	"github.com/professor93/tgconfig/pkg/constants"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping() error
}

// Server serves the front-end configuration records over HTTP
type Server struct {
	app    *fiber.App
	port   int
	config *Config
	apps   atomic.Pointer[config.Set]
	logger *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port                  int
	MaxConcurrentConns    int
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	IdleTimeout           time.Duration
	DisableStartupMessage bool

	Version string      // reported by /health
	Store   Pinger      // optional; checked by /health
	Logger  *zap.Logger // optional; access log and errors
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:               constants.DefaultPort,
		MaxConcurrentConns: constants.DefaultMaxConcurrentConnections,
		ReadTimeout:        constants.DefaultRequestTimeout * time.Second,
		WriteTimeout:       constants.DefaultRequestTimeout * time.Second,
		IdleTimeout:        120 * time.Second,
		Version:            constants.DefaultVersion,
	}
}

// New creates a server for the given records. The set is copied; the
// server never observes later changes made by the caller, only sets passed
// to Swap.
func New(cfg *Config, apps config.Set) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               constants.AppName,
		ServerHeader:          constants.AppDisplayName,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		IdleTimeout:           cfg.IdleTimeout,
		Concurrency:           cfg.MaxConcurrentConns,
		DisableStartupMessage: cfg.DisableStartupMessage,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(accessLog(logger))
	app.Use(cors.New())

	server := &Server{
		app:    app,
		port:   cfg.Port,
		config: cfg,
		logger: logger,
	}
	server.apps.Store(&apps)

	server.setupRoutes()

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)

	s.app.Get("/api/config", s.handleGetAll)
	s.app.Get("/api/config/:app", s.handleGetApp)

	// Drop-in replacement for each bundle's static config.js
	s.app.Get("/:app/config.js", s.handleScript)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// StartWithContext starts the server and shuts it down when ctx is done
func (s *Server) StartWithContext(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start()
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// ShutdownWithTimeout shuts down the server with timeout
func (s *Server) ShutdownWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.app.ShutdownWithContext(ctx)
}

// Swap replaces the served records. Requests in flight finish with the set
// they started with.
func (s *Server) Swap(apps config.Set) {
	s.apps.Store(&apps)
}

// Current returns the records being served
func (s *Server) Current() config.Set {
	return *s.apps.Load()
}

// GetApp returns the underlying Fiber app
func (s *Server) GetApp() *fiber.App {
	return s.app
}

// accessLog logs one line per request through zap. Errors are rendered by
// the app's error handler first so the logged status is the one sent.
func accessLog(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.Info("HTTP request",
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		)
		return nil
	}
}

// customErrorHandler handles errors and returns standardized API responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	var appCode int
	switch code {
	case fiber.StatusBadRequest:
		appCode = api.CodeErrorBadRequest
	case fiber.StatusNotFound:
		appCode = api.CodeErrorNotFound
	case fiber.StatusInternalServerError:
		appCode = api.CodeErrorInternal
	default:
		appCode = api.CodeErrorGeneric
	}

	return c.Status(code).JSON(api.NewErrorResponse(appCode, message))
}

func unknownApp(c *fiber.Ctx, app string) error {
	return c.Status(fiber.StatusNotFound).JSON(api.NewErrorResponse(
		api.CodeErrorUnknownApp,
		fmt.Sprintf("%s: %q", api.MessageUnknownApp, app),
	))
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *fiber.Ctx) error {
	health := api.HealthCheck{
		Healthy:    true,
		Version:    s.config.Version,
		Timestamp:  time.Now().Format(time.RFC3339),
		DatabaseOK: true,
		ConfigOK:   s.Current().Validate() == nil,
	}

	if s.config.Store != nil {
		if err := s.config.Store.Ping(); err != nil {
			s.logger.Warn("Settings store ping failed", zap.Error(err))
			health.DatabaseOK = false
		}
	}
	health.Healthy = health.DatabaseOK && health.ConfigOK

	message := "Service is healthy"
	if !health.Healthy {
		message = "Service is degraded"
	}

	return c.JSON(api.NewSuccessResponse(api.CodeSuccess, message, health))
}

// handleGetAll returns every record keyed by application name
func (s *Server) handleGetAll(c *fiber.Ctx) error {
	apps := s.Current()
	all := make(map[string]interface{}, 3)
	for _, app := range config.Apps() {
		view, err := apps.View(app)
		if err != nil {
			return err
		}
		all[app] = view
	}

	return c.JSON(api.NewSuccessResponse(
		api.CodeDataRetrieved,
		"Configuration retrieved successfully",
		all,
	))
}

// handleGetApp returns one record; KDS includes its resolved endpoints
func (s *Server) handleGetApp(c *fiber.Ctx) error {
	app := c.Params("app")

	view, err := s.Current().View(app)
	if errors.Is(err, config.ErrUnknownApp) {
		return unknownApp(c, app)
	}
	if err != nil {
		return err
	}

	return c.JSON(api.NewSuccessResponseWithMeta(
		api.CodeConfigResolved,
		"Configuration resolved successfully",
		view,
		api.ConfigMeta{App: app, Version: s.config.Version},
	))
}

// handleScript renders the record as the browser's config.js
func (s *Server) handleScript(c *fiber.Ctx) error {
	app := c.Params("app")

	script, err := s.Current().Script(app)
	if errors.Is(err, config.ErrUnknownApp) {
		return unknownApp(c, app)
	}
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/javascript; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(script)
}
