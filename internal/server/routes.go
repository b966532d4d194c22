// Package server exposes the analyzer over HTTP (echo) and publishes backend
// health over the standard gRPC health service.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// Options configures the HTTP router.
type Options struct {
	APIKey          string
	AllowOrigins    []string
	MaxUploadSizeMB int
}

// OptionsFrom maps the service config.
func OptionsFrom(cfg *common.Config) Options {
	return Options{
		APIKey:          cfg.Auth.APIKey,
		AllowOrigins:    cfg.Server.CORSAllowOrigins,
		MaxUploadSizeMB: cfg.Processing.MaxUploadSizeMB,
	}
}

// NewRouter builds the echo instance with middleware and routes.
func NewRouter(opts Options, h *Handler, logger *slog.Logger) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(RequestID(logger))
	e.Use(RequestLogger(logger))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("http.panic", "path", c.Path(), "error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
		AllowCredentials: true,
	}))

	e.GET("/health", h.HandleHealth)

	api := e.Group("/api/v1")
	if opts.MaxUploadSizeMB > 0 {
		// hard ceiling on the raw body; the exact per-request limit is enforced while reading files
		api.Use(middleware.BodyLimit(fmt.Sprintf("%dM", 2*opts.MaxUploadSizeMB+1)))
	}
	api.Use(BearerAuth(opts.APIKey))
	api.POST("/analyze", h.HandleAnalyze)

	return e
}
