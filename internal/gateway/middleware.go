// internal/gateway/middleware.go
package gateway

import (
	"time"

	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestID attaches a request id to every call, generating one when the
// client did not supply its own.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs each call with its operation, status, and duration.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		}
		if id, ok := c.Get("requestID"); ok {
			fields["requestId"] = id
		}
		if op := c.Param("operation"); op != "" {
			fields["operation"] = op
		}

		if c.Writer.Status() >= 500 {
			log.Error("request failed", fields)
		} else {
			log.Info("request handled", fields)
		}
	}
}

// callMetrics records Prometheus counters and latency per operation.
func callMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := c.Param("operation")
		if op == "" {
			c.Next()
			return
		}

		start := time.Now()
		metrics.LedgerCallsTotal.WithLabelValues(op).Inc()
		c.Next()
		metrics.LedgerCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}
