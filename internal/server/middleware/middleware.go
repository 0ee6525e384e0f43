package middleware

import (
	"detection-api/logging"

	"github.com/labstack/echo/v4"
)

// LoggingMiddleware logs every request before handing it to the route.
func LoggingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		logging.Info("Received request", logging.Server,
			"method", ctx.Request().Method, "path", ctx.Request().URL.Path)
		logging.Debug("Request headers", logging.Server, "headers", ctx.Request().Header)
		return next(ctx)
	}
}
