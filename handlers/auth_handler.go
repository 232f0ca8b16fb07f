package handlers

import (
	"log"
	"net/http"

	"coldsend-backend/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler runs the delegated sign-in flow for the mail account
type AuthHandler struct {
	tokens *service.TokenManager
	states *service.StateSigner
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokens *service.TokenManager, states *service.StateSigner) *AuthHandler {
	return &AuthHandler{tokens: tokens, states: states}
}

// Login handles GET /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	state, err := h.states.Issue()
	if err != nil {
		log.Printf("[%s] Failed to issue oauth state: %v", RequestID(c), err)
		respondError(c, http.StatusInternalServerError, CodeAuthRequired, "Failed to start login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auth_url": h.tokens.AuthCodeURL(state),
	})
}

// Callback handles GET /auth/callback and persists the exchanged token pair
func (h *AuthHandler) Callback(c *gin.Context) {
	if errCode := c.Query("error"); errCode != "" {
		c.String(http.StatusBadRequest, "Login failed: %s %s", errCode, c.Query("error_description"))
		return
	}

	if err := h.states.Verify(c.Query("state")); err != nil {
		log.Printf("[%s] Rejected oauth callback: %v", RequestID(c), err)
		c.String(http.StatusBadRequest, "Login failed: invalid or expired state. Start again from /auth/login.")
		return
	}

	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Login failed: missing authorization code")
		return
	}

	if _, err := h.tokens.Exchange(c.Request.Context(), code); err != nil {
		log.Printf("[%s] Token exchange failed: %v", RequestID(c), err)
		c.String(http.StatusInternalServerError, "Login failed: %v", err)
		return
	}

	log.Printf("[%s] Mail account connected", RequestID(c))
	c.String(http.StatusOK, "Authentication successful. You can close this window.")
}
