package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the request id in both directions.
const Header = "X-Request-ID"

const contextKey = "request_id"

// maxInboundLen caps ids accepted from callers.
const maxInboundLen = 128

// Middleware reuses the caller's X-Request-ID or mints a UUID, stores it on
// the context and echoes it in the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxInboundLen {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Value returns the id assigned by Middleware, or "".
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
