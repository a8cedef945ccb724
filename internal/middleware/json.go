package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// Rejects requests whose Accept header rules out JSON
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Accept") != "" && c.NegotiateFormat(binding.MIMEJSON) == "" {
			c.AbortWithStatusJSON(http.StatusNotAcceptable, "Only JSON Format accepted")
			return
		}
		c.Next()
	}
}
