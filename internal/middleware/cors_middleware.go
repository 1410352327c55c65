package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	publicAllowOrigin  = "*"
	publicAllowMethods = "POST, OPTIONS"
	publicAllowHeaders = "Content-Type, x-description"
)

// CORSMiddleware sets the permissive public-upload CORS headers on every
// response, with or without an Origin header, and answers preflights with 204.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", publicAllowOrigin)
		h.Set("Access-Control-Allow-Methods", publicAllowMethods)
		h.Set("Access-Control-Allow-Headers", publicAllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RouterCORSMiddleware is the browser-facing policy for the file router,
// restricted to the configured origins.
func RouterCORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "x-api-key", "x-description"},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}
