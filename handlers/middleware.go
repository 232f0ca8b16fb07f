package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware stamps every request with an id, reusing the caller's if sent
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestID returns the id set by RequestIDMiddleware
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

var extensionSchemes = []string{"chrome-extension://", "moz-extension://", "safari-web-extension://"}

func isExtensionOrigin(origin string) bool {
	for _, scheme := range extensionSchemes {
		if strings.HasPrefix(origin, scheme) {
			return true
		}
	}
	return false
}

// CORSMiddleware allows the browser extension to call the API. With no
// origins configured only browser-extension origins are allowed.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:           []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:           []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders:          []string{requestIDHeader},
		AllowBrowserExtensions: true,
		MaxAge:                 12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = isExtensionOrigin
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// JSONOnly rejects request bodies not sent as application/json, so
// cross-site writes always need a CORS preflight
func JSONOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() != gin.MIMEJSON {
			respondError(c, http.StatusUnsupportedMediaType, CodeInvalidRequest, "Content-Type must be application/json")
			c.Abort()
			return
		}
		c.Next()
	}
}
