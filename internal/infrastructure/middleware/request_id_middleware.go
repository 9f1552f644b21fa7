package middleware

import (
	"notemesh/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key under which the request ID is stored.
const RequestIDKey = "request_id"

// RequestIDMiddleware tags every request with an ID. An inbound X-Request-ID
// header is honored so IDs survive proxies; otherwise one is generated. The
// ID is echoed back in the response and attached to error logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = utils.GenerateRequestID()
		}

		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}
