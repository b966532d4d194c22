package server

import (
	"crypto/subtle"
	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// RequestID assigns every request an id (or keeps the caller's X-Request-ID)
// and stores it, with a logger carrying it, in the request context.
func RequestID(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			ctx := common.WithRequestID(c.Request().Context(), id)
			ctx = common.WithLogger(ctx, logger.With("req_id", id))
			c.SetRequest(c.Request().WithContext(ctx))
		},
	})
}

// BearerAuth accepts requests whose Authorization header is "Bearer <apiKey>".
// Missing and wrong keys both get 401.
func BearerAuth(apiKey string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			common.LoggerFromContext(c.Request().Context(), nil).Warn("http.auth.rejected",
				"path", c.Path(), "reason", err.Error())
			return NewUnauthorizedError()
		},
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"elapsed_ms", v.Latency.Milliseconds(),
				"req_id", v.RequestID,
			}
			if v.Error != nil {
				logger.Warn("http.request", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			logger.Info("http.request", attrs...)
			return nil
		},
	})
}
