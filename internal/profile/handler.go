// Package profile serves the signed-in member's profile and the profile
// completion form.
package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/pkg/response"
	"github.com/aether-community/backend/pkg/validation"
)

// MessageSaved is returned after a successful profile completion.
const MessageSaved = "Profile updated successfully."

// Service is the part of the membership service the profile pages use.
type Service interface {
	Member(ctx context.Context, code string) (*models.Member, error)
	CompleteProfile(ctx context.Context, email string, in membership.ProfileInput) (*models.Member, error)
}

// Handler handles profile HTTP endpoints.
type Handler struct {
	svc     Service
	cache   Cache
	cookies *session.Cookies
	logger  *zap.Logger
}

// NewHandler creates a profile handler. cache may be nil.
func NewHandler(svc Service, cache Cache, cookies *session.Cookies, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, cache: cache, cookies: cookies, logger: logger}
}

// Get handles GET /api/profile.
func (h *Handler) Get(c *gin.Context) {
	m, err := h.load(c.Request.Context(), middleware.Claims(c).MemberID)
	if errors.Is(err, membership.ErrNotFound) {
		// The session outlived the member record.
		h.cookies.Clear(c)
		response.Unauthorized(c, "Please sign in to continue.")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, m)
}

// Complete handles POST /api/profile.
func (h *Handler) Complete(c *gin.Context) {
	var in membership.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			response.ValidationFailed(c, validation.Summary, fields)
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	claims := middleware.Claims(c)
	m, err := h.svc.CompleteProfile(c.Request.Context(), claims.Email, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.cookies.Set(c, m); err != nil {
		h.logger.Error("reissue session", zap.String("code", m.Code), zap.Error(err))
		response.Internal(c, "failed to refresh session")
		return
	}
	response.Message(c, http.StatusOK, MessageSaved, m)
}

func (h *Handler) load(ctx context.Context, code string) (*models.Member, error) {
	if h.cache != nil {
		m, ok, err := h.cache.Get(ctx, code)
		if err != nil {
			h.logger.Warn("profile cache read failed", zap.String("code", code), zap.Error(err))
		} else if ok {
			return m, nil
		}
	}
	m, err := h.svc.Member(ctx, code)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, m); err != nil {
			h.logger.Warn("profile cache write failed", zap.String("code", code), zap.Error(err))
		}
	}
	return m, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	if fields := membership.FieldErrors(err); fields != nil {
		response.ValidationFailed(c, validation.Summary, fields)
		return
	}
	status, msg := membership.UserMessage(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("profile request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	response.Status(c, status, msg)
}
