package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"feststay.app/concierge/internal/twilio"
)

// panicReply is what the sender sees if the pipeline panics mid-request.
// The gateway contract still wants TwiML with 200 so the message is not
// redelivered into the same crash.
const panicReply = "Sorry, something went wrong on our side. Please send your message again in a few minutes."

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				stack := string(debug.Stack())

				slog.ErrorContext(ctx, "panic recovered",
					"error", err,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"stack", stack,
				)

				if strings.HasPrefix(c.Request.URL.Path, "/webhook") {
					c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(twilio.RenderReply(panicReply)))
					c.Abort()
					return
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
