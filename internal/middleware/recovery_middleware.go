package middleware

import (
	"fmt"

	"upload-relay/internal/transport/httpdto"
	relay_errors "upload-relay/pkg/errors"
	"upload-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware turns a panic anywhere below it into a 500 with an
// "Unexpected error" body carrying the panic value as details.
func RecoveryMiddleware(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("%v", recovered)
		}
		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		log.Ctx(c.Request.Context()).Errorf("%s %s panic: %v", c.Request.Method, c.Request.URL.Path, err)

		status, body := httpdto.FromError(relay_errors.Unexpected(err))
		c.AbortWithStatusJSON(status, body)
	})
}

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		log.Ctx(c.Request.Context()).Errorf("request error: %s", err.Error())
		status, body := httpdto.FromError(err)
		c.JSON(status, body)
	}
}
