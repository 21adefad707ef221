package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/oauth"
	"github.com/aether-community/backend/pkg/response"
)

const (
	stateCookie    = "aether_oauth_state"
	verifierCookie = "aether_oauth_verifier"
	oauthPath      = "/auth/google"
	oauthCookieAge = 300
)

// Provider is an OAuth identity provider.
type Provider interface {
	Enabled() bool
	Start() (authURL, state, verifier string, err error)
	Exchange(ctx context.Context, code, verifier string) (*oauth.UserInfo, error)
}

// GoogleHandler handles the Google sign-in endpoints.
type GoogleHandler struct {
	*Handler
	provider Provider
}

// NewGoogleHandler creates Google sign-in endpoints sharing h's session handling.
func NewGoogleHandler(h *Handler, provider Provider) *GoogleHandler {
	return &GoogleHandler{Handler: h, provider: provider}
}

// Login handles GET /auth/google/login.
func (g *GoogleHandler) Login(c *gin.Context) {
	if !g.provider.Enabled() {
		response.NotFound(c, "Google sign-in is not available.")
		return
	}
	authURL, state, verifier, err := g.provider.Start()
	if err != nil {
		g.logger.Error("start google sign-in", zap.Error(err))
		response.Internal(c, "failed to start sign-in")
		return
	}
	g.setOAuthCookie(c, stateCookie, state, oauthCookieAge)
	g.setOAuthCookie(c, verifierCookie, verifier, oauthCookieAge)
	c.Redirect(http.StatusFound, authURL)
}

// Callback handles GET /auth/google/callback.
func (g *GoogleHandler) Callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	verifier, _ := c.Cookie(verifierCookie)
	g.setOAuthCookie(c, stateCookie, "", -1)
	g.setOAuthCookie(c, verifierCookie, "", -1)

	if errParam := c.Query("error"); errParam != "" {
		g.logger.Info("google sign-in declined", zap.String("error", errParam))
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if err != nil || state == "" || c.Query("state") != state {
		response.BadRequest(c, "Sign-in session expired. Please try again.")
		return
	}

	info, err := g.provider.Exchange(c.Request.Context(), c.Query("code"), verifier)
	if errors.Is(err, oauth.ErrEmailUnverified) {
		response.Forbidden(c, "Your Google account email is not verified.")
		return
	}
	if err != nil {
		g.logger.Error("google code exchange", zap.Error(err))
		response.Fail(c, http.StatusBadGateway, response.CodeUnavailable, "Google sign-in failed. Please try again.")
		return
	}

	m, err := g.svc.SignInWithProvider(c.Request.Context(), info.Email, info.Name)
	if err != nil {
		g.fail(c, err)
		return
	}
	if err := g.cookies.Set(c, m); err != nil {
		g.logger.Error("issue session", zap.String("code", m.Code), zap.Error(err))
		response.Internal(c, "failed to start session")
		return
	}
	c.Redirect(http.StatusFound, profilePath)
}

func (g *GoogleHandler) setOAuthCookie(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     oauthPath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.cookies.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}
