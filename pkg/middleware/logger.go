package middleware

import (
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Logger logs one line per request. A request id is assigned when the caller
// did not send one, and echoed back on the response so batch clients can
// correlate linkage runs with their logs.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			res.Header().Set(echo.HeaderXRequestID, id)

			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			entry := logger.WithContext(req.Context()).WithFields(map[string]interface{}{
				"request_id": id,
				"trace_id":   tracing.GetTraceID(req.Context()),
				"method":     req.Method,
				"route":      c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"remote_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
				"latency_ms": time.Since(start).Milliseconds(),
				"bytes_out":  res.Size,
			})
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Info("Request")

			return nil
		}
	}
}
