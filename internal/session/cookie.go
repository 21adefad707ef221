package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aether-community/backend/internal/models"
)

// DefaultCookieName is the session cookie.
const DefaultCookieName = "aether_session"

// Cookies writes and clears the session cookie.
type Cookies struct {
	manager *Manager
	name    string
	secure  bool
}

// NewCookies creates a cookie writer. secure should be true in production.
func NewCookies(manager *Manager, name string, secure bool) *Cookies {
	if name == "" {
		name = DefaultCookieName
	}
	return &Cookies{manager: manager, name: name, secure: secure}
}

// Secure reports whether cookies are marked Secure.
func (c *Cookies) Secure() bool { return c.secure }

// Manager returns the token manager behind the cookie.
func (c *Cookies) Manager() *Manager { return c.manager }

// Set signs a session for m and writes it as an http-only cookie.
func (c *Cookies) Set(ctx *gin.Context, m *models.Member) error {
	token, err := c.manager.Generate(m)
	if err != nil {
		return err
	}
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     c.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.manager.TTL().Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *Cookies) Clear(ctx *gin.Context) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read returns the claims of a valid session cookie on the request, or nil.
func (c *Cookies) Read(r *http.Request) *Claims {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return nil
	}
	claims, err := c.manager.Validate(cookie.Value)
	if err != nil {
		return nil
	}
	return claims
}
