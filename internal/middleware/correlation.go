package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationIDHeader is the header carrying the request correlation ID
const CorrelationIDHeader = "X-Correlation-ID"

const correlationIDKey = "correlationID"

// CorrelationID propagates the caller's correlation ID, generating one
// when the request carries none.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(correlationIDKey, correlationID)
		c.Writer.Header().Set(CorrelationIDHeader, correlationID)
		c.Next()
	}
}

// GetCorrelationID returns the request's correlation ID
func GetCorrelationID(c *gin.Context) string {
	if v, ok := c.Get(correlationIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
