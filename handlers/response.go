package handlers

import (
	"errors"
	"log"
	"net/http"

	"coldsend-backend/service"

	"github.com/gin-gonic/gin"
)

// Error codes returned in the "code" field of error responses
const (
	CodeSettingsNotConfigured = "SETTINGS_NOT_CONFIGURED"
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeMissingField          = "MISSING_FIELD"
	CodeAuthRequired          = "AUTH_REQUIRED"
	CodeGenerationFailed      = "GENERATION_FAILED"
	CodeSendFailed            = "SEND_FAILED"
	CodeLookupFailed          = "LOOKUP_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUploadFailed          = "UPLOAD_FAILED"
)

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// respondServiceError maps the service errors every handler can meet and
// reports whether it wrote a response
func respondServiceError(c *gin.Context, err error) bool {
	var missing *service.MissingSettingsError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Settings not configured. Save your settings first.",
			"code":    CodeSettingsNotConfigured,
			"missing": missing.Fields,
		})
	case errors.Is(err, service.ErrSettingsNotConfigured):
		respondError(c, http.StatusBadRequest, CodeSettingsNotConfigured, err.Error())
	case errors.Is(err, service.ErrTokenNotFound), errors.Is(err, service.ErrNoRefreshToken):
		respondError(c, http.StatusUnauthorized, CodeAuthRequired, "Mail account not connected. Visit /auth/login to sign in.")
	default:
		return false
	}
	log.Printf("[%s] %s %s: %v", RequestID(c), c.Request.Method, c.FullPath(), err)
	return true
}
