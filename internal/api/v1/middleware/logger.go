// Package middleware provides fiber middleware shared by the API routes
package middleware

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	log "github.com/domainbrowser/searchjobs/internal/logger"
)

// RequestIDHeader carries the request id to and from clients
const RequestIDHeader = "X-Request-ID"

// Logger returns a middleware that logs HTTP requests. A request id is
// taken from the X-Request-ID header or generated, and echoed back.
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Locals("request_id", requestID)

		// Continue chain
		err := c.Next()

		// After request
		stop := time.Now()
		latency := stop.Sub(start)

		fields := map[string]interface{}{
			"request_id": requestID,
			"status":     c.Response().StatusCode(),
			"latency":    latency.String(),
			"ip":         c.IP(),
			"method":     c.Method(),
			"path":       c.Path(),
			"handler":    c.Route().Name,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			log.WarnWithFields("Request", fields)
		} else {
			log.InfoWithFields("Request", fields)
		}

		return err
	}
}
