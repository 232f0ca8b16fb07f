package handlers

import (
	"log"
	"net/http"

	"coldsend-backend/models"
	"coldsend-backend/service"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles the user settings endpoints
type SettingsHandler struct {
	settings *service.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// SaveSettings handles POST /save-settings. Every field is optional and
// only non-empty values replace what is saved. resumePath must be a key
// returned by /upload-resume.
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	var req models.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if req.ResumePath != "" && !isResumeKey(req.ResumePath) {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "resumePath must be a key returned by /upload-resume")
		return
	}

	saved := h.settings.Save(req)
	log.Printf("[%s] Settings saved (configured=%v)", RequestID(c), len(saved.MissingForGeneration()) == 0)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// GetSettings handles GET /settings. API keys are reported only as present or absent.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	s := h.settings.Snapshot()
	missing := s.MissingForGeneration()
	if missing == nil {
		missing = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":    len(missing) == 0,
		"missing":       missing,
		"userName":      s.UserName,
		"userAbout":     s.UserAbout,
		"signatureHtml": s.SignatureHTML,
		"resumePath":    s.ResumePath,
		"hasApiKey":     s.APIKey != "",
		"hasApolloKey":  s.ApolloAPIKey != "",
	})
}
