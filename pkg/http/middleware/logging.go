package middleware

import (
	"time"

	applogger "LunarPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs HTTP requests at debug level.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if l != nil {
				l.Debug("http request",
					applogger.String("method", req.Method),
					applogger.String("uri", req.RequestURI),
					applogger.String("remote", c.RealIP()),
					applogger.Int("status", res.Status),
					applogger.Duration("latency_ms", time.Since(start)),
				)
			}

			return err
		}
	}
}

// RouteLabel stores the matched route template on the request context so
// net/http middleware can label metrics without raw URLs.
func RouteLabel() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(withRoute(req.Context(), c.Path())))
			return next(c)
		}
	}
}
