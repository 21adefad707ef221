// Package support records messages sent through the contact form.
package support

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/response"
	"github.com/aether-community/backend/pkg/validation"
)

// MessageReceived is returned after a request is stored.
const MessageReceived = "Thanks for reaching out! Our team will get back to you soon."

// Request is the body for POST /api/support.
type Request struct {
	Name    string `json:"name" binding:"required,min=2,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,min=2,max=200"`
	Message string `json:"message" binding:"required,min=10,max=5000"`
}

// Handler handles support HTTP endpoints.
type Handler struct {
	store  store.SupportRequests
	logger *zap.Logger
}

// NewHandler creates a support handler.
func NewHandler(st store.SupportRequests, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, logger: logger}
}

// Create handles POST /api/support.
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			response.ValidationFailed(c, validation.Summary, fields)
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	req = normalize(req)
	if fields := validation.Validate(req); fields != nil {
		response.ValidationFailed(c, validation.Summary, fields)
		return
	}

	r := &models.SupportRequest{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}
	if err := h.store.CreateSupportRequest(c.Request.Context(), r); err != nil {
		status, msg := store.UserMessage(err)
		h.logger.Error("create support request failed", zap.Error(err))
		response.Status(c, status, msg)
		return
	}
	response.Message(c, http.StatusCreated, MessageReceived, nil)
}

// normalize trims the request so the length rules apply to the stored text.
func normalize(req Request) Request {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = models.NormalizeEmail(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	return req
}
