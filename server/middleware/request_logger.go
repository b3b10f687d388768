package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/jobmatch/server/internal/observability"
)

// RequestLogger attaches a request context to every request, logs the
// outcome and records it in metrics.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := req.Method + " " + c.Path()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			var rc *observability.RequestContext
			if requestID != "" {
				rc = observability.NewRequestContextWithID(logger, requestID, route)
			} else {
				rc = observability.NewRequestContext(logger, route)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

			err := next(c)
			if err != nil {
				// Let echo's error handler write the response so the status is known.
				c.Error(err)
			}

			if userID, ok := UserIDFrom(c); ok {
				rc.UserID = userID
			}
			status := c.Response().Status
			if metrics != nil {
				metrics.Record(route, status, rc.Duration())
			}

			attrs := []slog.Attr{
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()),
			}
			switch {
			case status >= http.StatusInternalServerError:
				rc.Warn("request failed", attrs...)
			default:
				rc.Info("request handled", attrs...)
			}
			return nil
		}
	}
}
