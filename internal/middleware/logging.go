package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request once the rest of the chain has run.
func RequestLogger(log logrus.FieldLogger) drift.HandlerFunc {
	return func(c *drift.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"client_ip":  ClientIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if userID := GetUserID(c); userID != uuid.Nil {
			fields["user_id"] = userID.String()
		}
		log.WithFields(fields).Info("request handled")
	}
}
