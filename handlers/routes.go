package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers served by the API
type Handlers struct {
	Outreach *OutreachHandler
	Settings *SettingsHandler
	Apollo   *ApolloHandler
	Auth     *AuthHandler
	Resume   *ResumeHandler
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r gin.IRouter, h Handlers) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Drafting and sending
	r.POST("/generate-email", JSONOnly(), h.Outreach.GenerateEmail)
	r.POST("/generate-connection-message", JSONOnly(), h.Outreach.GenerateConnectionMessage)
	r.POST("/send-email", JSONOnly(), h.Outreach.SendEmail)

	// Settings
	r.POST("/save-settings", JSONOnly(), h.Settings.SaveSettings)
	r.GET("/settings", h.Settings.GetSettings)
	r.POST("/upload-resume", h.Resume.UploadResume)
	r.GET("/resume", h.Resume.GetResume)

	// Contact lookup
	r.POST("/query-apollo", JSONOnly(), h.Apollo.QueryApollo)

	// Mail account sign-in
	auth := r.Group("/auth")
	{
		auth.GET("/login", h.Auth.Login)
		auth.GET("/callback", h.Auth.Callback)
	}
}
