package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"coldsend-backend/models"
	"coldsend-backend/service"
	"coldsend-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const resumePrefix = "resumes"

// isResumeKey reports whether key is a clean storage key under resumePrefix
func isResumeKey(key string) bool {
	return filepath.IsLocal(key) &&
		path.Clean(key) == key &&
		strings.HasPrefix(key, resumePrefix+"/")
}

// ResumeHandler uploads and serves the résumé attached to outreach mail
type ResumeHandler struct {
	documents        storage.Storage
	settings         *service.SettingsService
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewResumeHandler creates a new résumé handler
func NewResumeHandler(documents storage.Storage, settings *service.SettingsService) *ResumeHandler {
	return &ResumeHandler{
		documents:   documents,
		settings:    settings,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		allowedMimeTypes: map[string]bool{
			"application/pdf":    true,
			"text/plain":         true,
			"application/msword": true, // .doc
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true, // .docx
		},
	}
}

// UploadResume handles POST /upload-resume. The stored key becomes the saved resumePath.
func (h *ResumeHandler) UploadResume(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeMissingField, "File is required")
		return
	}

	if fileHeader.Size > h.maxFileSize {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize))
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	mimeType := storage.ContentType(filename)
	if !h.allowedMimeTypes[mimeType] {
		respondError(c, http.StatusBadRequest, CodeInvalidRequest, "File type not allowed. Allowed types: PDF, TXT, DOC, DOCX")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, CodeUploadFailed, err.Error())
		return
	}
	defer file.Close()

	key := path.Join(resumePrefix, uuid.NewString(), filename)
	if err := h.documents.Put(c.Request.Context(), key, file); err != nil {
		respondError(c, http.StatusInternalServerError, CodeUploadFailed, fmt.Sprintf("Failed to upload file: %v", err))
		return
	}

	previous := h.settings.Snapshot().ResumePath
	h.settings.Save(models.Settings{ResumePath: key})
	if isResumeKey(previous) {
		if err := h.documents.Delete(c.Request.Context(), previous); err != nil {
			log.Printf("[%s] Warning: failed to delete old resume %s: %v", RequestID(c), previous, err)
		}
	}

	log.Printf("[%s] Resume uploaded to %s (%d bytes)", RequestID(c), key, fileHeader.Size)
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"resumePath": key,
		"filename":   filename,
		"mimeType":   mimeType,
		"size":       fileHeader.Size,
	})
}

// GetResume handles GET /resume
func (h *ResumeHandler) GetResume(c *gin.Context) {
	key := h.settings.Snapshot().ResumePath
	if key == "" {
		respondError(c, http.StatusNotFound, CodeNotFound, "No resume saved")
		return
	}
	if !isResumeKey(key) {
		log.Printf("[%s] Refusing to serve resume path outside %s/: %q", RequestID(c), resumePrefix, key)
		respondError(c, http.StatusNotFound, CodeNotFound, "No uploaded resume saved")
		return
	}

	reader, err := h.documents.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "Resume file not found")
			return
		}
		respondError(c, http.StatusInternalServerError, CodeLookupFailed, fmt.Sprintf("Failed to read resume: %v", err))
		return
	}
	defer reader.Close()

	filename := filepath.Base(key)
	c.DataFromReader(http.StatusOK, -1, storage.ContentType(filename), reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=\"%s\"", filename),
	})
}
