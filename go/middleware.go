package storefrontserver

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// RequestID echoes the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
