package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS returns the cross-origin middleware. Allowed origins come from
// CORS_ORIGINS (comma-separated); the default covers local frontend dev.
func CORS() gin.HandlerFunc {
	origins := []string{"http://localhost:5173", "http://frontend:5173"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Session-ID"},
		ExposeHeaders:    []string{"X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}
