package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"coldsend-backend/service"

	"github.com/gin-gonic/gin"
)

// ApolloHandler handles contact lookups
type ApolloHandler struct {
	apollo *service.ApolloService
}

// NewApolloHandler creates a new Apollo handler
func NewApolloHandler(apollo *service.ApolloService) *ApolloHandler {
	return &ApolloHandler{apollo: apollo}
}

// QueryApolloRequest represents the request body for a contact lookup
type QueryApolloRequest struct {
	LinkedInURL string `json:"linkedinUrl"`
}

// QueryApollo handles POST /query-apollo
func (h *ApolloHandler) QueryApollo(c *gin.Context) {
	var req QueryApolloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	linkedinURL := strings.TrimSpace(req.LinkedInURL)
	if linkedinURL == "" {
		respondError(c, http.StatusBadRequest, CodeMissingField, "linkedinUrl is required")
		return
	}

	contact, err := h.apollo.LookupByLinkedIn(c.Request.Context(), linkedinURL)
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		if errors.Is(err, service.ErrContactNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "No email found for this profile")
			return
		}
		log.Printf("[%s] Apollo lookup failed: %v", RequestID(c), err)
		respondError(c, http.StatusInternalServerError, CodeLookupFailed, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"email":   contact.Email,
		"name":    contact.Name,
		"title":   contact.Title,
		"company": contact.Company,
	})
}
