package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
)

// APIKeyHeader carries the shared key for scheduler trigger routes.
const APIKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the scheduler trigger routes. An empty apiKey
// disables them with 503 rather than leaving them open.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)

	return func(c *gin.Context) {
		if len(expected) == 0 {
			RespondError(c, apperrors.ErrPipelineDisabled)
			return
		}

		presented := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
			logger.FromContext(c.Request.Context()).Warnw("rejected pipeline call",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"key_present", presented != "",
			)
			RespondError(c, apperrors.ErrInvalidAPIKey)
			return
		}

		c.Next()
	}
}
