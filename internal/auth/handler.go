// Package auth serves signup, email verification, magic login links,
// logout and Google sign-in.
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/pkg/response"
	"github.com/aether-community/backend/pkg/validation"
)

// User-facing messages.
const (
	MessageJoined            = "Registration successful! Check your email to activate your Aether ID."
	MessageJoinedUndelivered = "Your Aether ID was created, but we couldn't send the activation email. Please try joining again in a few minutes."
	MessageLoginLinkSent     = "If an active account exists for this email, a login link is on its way. Please check your inbox."
	MessageLoggedOut         = "Logged out successfully"
)

const (
	profilePath = "/profile"
	joinPath    = "/join"
)

// Service is the part of the membership service the auth endpoints use.
type Service interface {
	Register(ctx context.Context, in membership.RegisterInput) (*models.Member, error)
	VerifyToken(ctx context.Context, token string) (*models.Member, error)
	RequestLoginLink(ctx context.Context, email string) error
	SignInWithProvider(ctx context.Context, email, name string) (*models.Member, error)
}

// LoginLinkRequest is the body for POST /api/login-link.
type LoginLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc     Service
	cookies *session.Cookies
	baseURL *url.URL
	logger  *zap.Logger
}

// NewHandler creates an auth handler. baseURL is the public site origin used
// to accept absolute callback URLs.
func NewHandler(svc Service, cookies *session.Cookies, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}
	return &Handler{svc: svc, cookies: cookies, baseURL: base, logger: logger}
}

// Join handles POST /api/join.
func (h *Handler) Join(c *gin.Context) {
	var in membership.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			response.ValidationFailed(c, validation.Summary, fields)
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	m, err := h.svc.Register(c.Request.Context(), in)
	if err != nil && notify.IsDeliveryError(err) && m != nil {
		h.logger.Warn("verification email not delivered", zap.String("code", m.Code), zap.Error(err))
		response.Fail(c, http.StatusBadGateway, response.CodeUnavailable, MessageJoinedUndelivered)
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, http.StatusCreated, MessageJoined, nil)
}

// Verify handles GET /auth/verify?token=&callbackUrl=. On success the member
// is signed in and redirected; on failure the body links back to signup.
func (h *Handler) Verify(c *gin.Context) {
	m, err := h.svc.VerifyToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, membership.ErrInvalidToken) || errors.Is(err, membership.ErrTokenMissing) {
			_, msg := membership.UserMessage(err)
			c.JSON(http.StatusBadRequest, response.Body{
				Success: false,
				Error:   response.CodeBadRequest,
				Message: msg,
				Data:    gin.H{"join_url": joinPath},
			})
			return
		}
		h.fail(c, err)
		return
	}

	if err := h.cookies.Set(c, m); err != nil {
		h.logger.Error("issue session", zap.String("code", m.Code), zap.Error(err))
		response.Internal(c, "failed to start session")
		return
	}
	c.Redirect(http.StatusFound, h.callback(c.Query("callbackUrl")))
}

// LoginLink handles POST /api/login-link. Unknown and unverified emails get
// the same answer as verified ones.
func (h *Handler) LoginLink(c *gin.Context) {
	var req LoginLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			response.ValidationFailed(c, validation.Summary, fields)
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	err := h.svc.RequestLoginLink(c.Request.Context(), req.Email)
	switch {
	case err == nil:
	case errors.Is(err, membership.ErrNotFound), errors.Is(err, membership.ErrNotActivated):
		h.logger.Info("login link not issued", zap.Error(err))
	default:
		h.fail(c, err)
		return
	}
	response.Message(c, http.StatusOK, MessageLoginLinkSent, nil)
}

// Logout handles POST /api/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.cookies.Clear(c)
	response.Message(c, http.StatusOK, MessageLoggedOut, nil)
}

// callback returns raw when it points back at this site, otherwise the profile page.
func (h *Handler) callback(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return profilePath
	}
	u, err := url.Parse(raw)
	if err != nil {
		return profilePath
	}
	if u.Scheme == "" && u.Host == "" {
		// Relative: must be a rooted path, not "//host" or "/\host".
		if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
			return u.RequestURI()
		}
		return profilePath
	}
	if h.baseURL.Host != "" && strings.EqualFold(u.Host, h.baseURL.Host) && u.Scheme == h.baseURL.Scheme {
		return u.String()
	}
	return profilePath
}

func (h *Handler) fail(c *gin.Context, err error) {
	if fields := membership.FieldErrors(err); fields != nil {
		response.ValidationFailed(c, validation.Summary, fields)
		return
	}
	status, msg := membership.UserMessage(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("auth request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	response.Status(c, status, msg)
}
