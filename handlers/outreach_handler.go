package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"coldsend-backend/models"
	"coldsend-backend/service"

	"github.com/gin-gonic/gin"
)

const defaultSubject = "Reaching out"

// OutreachHandler handles drafting and sending outreach
type OutreachHandler struct {
	outreach *service.OutreachService
	mail     *service.MailService
	tokens   *service.TokenManager
	settings *service.SettingsService
}

// NewOutreachHandler creates a new outreach handler
func NewOutreachHandler(outreach *service.OutreachService, mail *service.MailService, tokens *service.TokenManager, settings *service.SettingsService) *OutreachHandler {
	return &OutreachHandler{
		outreach: outreach,
		mail:     mail,
		tokens:   tokens,
		settings: settings,
	}
}

// GenerateRequest is the scraped profile plus the user's drafting preferences
type GenerateRequest struct {
	models.Profile
	Preferences models.Preferences `json:"preferences"`
}

// SendEmailRequest represents the request body for sending an email
type SendEmailRequest struct {
	EmailBody     string `json:"emailBody"`
	EmailID       string `json:"emailId"`
	Subject       string `json:"subject"`
	IncludeResume bool   `json:"includeResume"`
	ScheduleSend  bool   `json:"scheduleSend"`
}

// GenerateEmail handles POST /generate-email
func (h *OutreachHandler) GenerateEmail(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	log.Printf("[%s] Generating email for %q", RequestID(c), req.Name)
	draft, err := h.outreach.GenerateEmail(c.Request.Context(), req.Profile, req.Preferences)
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("[%s] Email generation failed: %v", RequestID(c), err)
		respondError(c, http.StatusInternalServerError, CodeGenerationFailed, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":   draft.Body,
		"subject": draft.Subject,
	})
}

// GenerateConnectionMessage handles POST /generate-connection-message
func (h *OutreachHandler) GenerateConnectionMessage(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	note, err := h.outreach.GenerateConnectionMessage(c.Request.Context(), req.Profile, req.Preferences)
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("[%s] Connection message generation failed: %v", RequestID(c), err)
		respondError(c, http.StatusInternalServerError, CodeGenerationFailed, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": note,
	})
}

// SendEmail handles POST /send-email
func (h *OutreachHandler) SendEmail(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.EmailID) == "" || strings.TrimSpace(req.EmailBody) == "" {
		respondError(c, http.StatusBadRequest, CodeMissingField, "emailId and emailBody are required")
		return
	}

	ctx := c.Request.Context()
	accessToken, err := h.tokens.AccessToken(ctx)
	if err != nil {
		if respondServiceError(c, err) {
			return
		}
		respondError(c, http.StatusInternalServerError, CodeSendFailed, err.Error())
		return
	}

	settings := h.settings.Snapshot()
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = defaultSubject
	}

	opts := service.SendOptions{ScheduleSend: req.ScheduleSend}
	if req.IncludeResume {
		if settings.ResumePath == "" {
			log.Printf("[%s] Warning: resume requested but no resume path saved", RequestID(c))
		}
		opts.AttachmentPath = settings.ResumePath
	}

	mail := service.OutgoingMail{
		To:            strings.TrimSpace(req.EmailID),
		Subject:       subject,
		BodyHTML:      req.EmailBody,
		SignatureHTML: settings.SignatureHTML,
	}
	if err := h.mail.Send(ctx, accessToken, mail, opts); err != nil {
		if respondServiceError(c, err) {
			return
		}
		log.Printf("[%s] Send to %s failed: %v", RequestID(c), mail.To, err)

		var sendErr *service.SendError
		if errors.As(err, &sendErr) {
			status := http.StatusInternalServerError
			if sendErr.StatusCode >= 400 && sendErr.StatusCode < 500 {
				status = http.StatusBadRequest
			}
			respondError(c, status, CodeSendFailed, sendErr.Body)
			return
		}
		respondError(c, http.StatusInternalServerError, CodeSendFailed, err.Error())
		return
	}

	log.Printf("[%s] Email sent to %s (scheduled=%v)", RequestID(c), mail.To, req.ScheduleSend)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
