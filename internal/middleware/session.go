package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/pkg/response"
)

// ContextSession is the key for session claims in gin context.
const ContextSession = "session"

const profilePath = "/profile"

// Session reads the session cookie and stores valid claims in context.
// Missing, tampered or expired cookies leave the request anonymous.
func Session(cookies *session.Cookies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := cookies.Read(c.Request); claims != nil {
			c.Set(ContextSession, claims)
		}
		c.Next()
	}
}

// Claims returns the session claims of a signed-in request, or nil.
func Claims(c *gin.Context) *session.Claims {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	claims, _ := v.(*session.Claims)
	return claims
}

// Gate redirects signed-in members away from pages they should not see:
// login and join pages go to the profile, and so does every other page
// until the profile is complete. Anonymous visitors pass through.
func Gate() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if isAuthEntry(path) || (!claims.ProfileComplete && !isProfile(path)) {
			c.Redirect(http.StatusFound, profilePath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func isAuthEntry(path string) bool {
	return strings.HasPrefix(path, "/login") || strings.HasPrefix(path, "/join")
}

func isProfile(path string) bool {
	return path == profilePath || strings.HasPrefix(path, profilePath+"/")
}

// RequireMember rejects anonymous requests with 401.
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Claims(c) == nil {
			response.Unauthorized(c, "Please sign in to continue.")
			c.Abort()
			return
		}
		c.Next()
	}
}
