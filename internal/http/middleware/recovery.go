// README: Recovery middleware; turns panics into an INTERNAL_ERROR envelope.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"londa/internal/http/response"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(c.Request.Context(), "panic serving request",
					"route", c.FullPath(), "panic", r, "stack", string(debug.Stack()))
				response.Fail(c, http.StatusInternalServerError, response.CodeInternal, "internal error", nil)
			}
		}()
		c.Next()
	}
}
