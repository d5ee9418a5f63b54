package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/store"
)

// Classify maps any error onto the AppError that is safe to show a client.
// Store misses become NOT_FOUND, validator failures become INVALID_INPUT and
// everything else is an INTERNAL_ERROR wrapping the cause.
func Classify(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrNotFound):
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	case errors.As(err, &fieldErrs):
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fieldErrs.Error())
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}

// RespondError writes err as the JSON error envelope and aborts the chain.
// Internal causes are logged with the request logger and never returned.
func RespondError(c *gin.Context, err error) {
	appErr := Classify(err)

	if appErr.Internal != nil {
		log := logger.FromContext(c.Request.Context())
		fields := []interface{}{
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if appErr.StatusCode >= 500 {
			log.Errorw("request failed", fields...)
		} else {
			log.Warnw("request rejected", fields...)
		}
	}

	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// ErrorHandler renders the last error a handler attached with c.Error, unless
// a response has already been written.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondError(c, c.Errors.Last().Err)
	}
}
