package middleware

import (
	"fmt"
	"net/http"

	"github.com/dutyfree/reconcile/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes. Declared lengths over the cap are
// refused up front; chunked uploads fail when the handler reads past it.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	message := fmt.Sprintf("Request body exceeds the %d MiB limit", maxBytes>>20)
	if maxBytes < 1<<20 {
		message = fmt.Sprintf("Request body exceeds the %d byte limit", maxBytes)
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodePayloadTooLarge, message, c.GetString("request_id")))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
