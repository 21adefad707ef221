package pages

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/events"
	"github.com/aether-community/backend/internal/knowledge"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/response"
)

// homeUpdates is the number of news posts shown on the landing page.
const homeUpdates = 3

// Events lists and finds events.
type Events interface {
	List(ctx context.Context, f events.Filter) ([]models.Event, error)
	Find(ctx context.Context, code string) (*models.Event, error)
}

// Resources searches the knowledge hub.
type Resources interface {
	Search(ctx context.Context, q knowledge.Query) ([]models.Resource, error)
}

// Updates reads the news feed.
type Updates interface {
	Latest(ctx context.Context, category string, limit int) ([]models.UpdatePost, error)
}

// Handler serves page data for the site routes.
type Handler struct {
	content   *Content
	events    Events
	resources Resources
	updates   Updates
	logger    *zap.Logger
}

// NewHandler creates a page handler.
func NewHandler(content *Content, ev Events, res Resources, up Updates, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{content: content, events: ev, resources: res, updates: up, logger: logger}
}

// Register mounts every page route on r behind the session gate.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("", middleware.Gate())
	g.GET("/", h.Home)
	g.GET("/about", h.About)
	g.GET("/faq", h.FAQ)
	g.GET("/programs", h.Programs)
	g.GET("/events", h.Events)
	g.GET("/events/:code", h.Event)
	g.GET("/knowledge", h.Knowledge)
	g.GET("/updates", h.Updates)
	g.GET("/login", h.Login)
	g.GET("/join", h.Join)
	g.GET("/profile", h.Profile)
}

// Home handles GET /: landing copy, the next upcoming event and recent news.
func (h *Handler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	upcoming, err := h.events.List(ctx, events.Filter{When: events.WhenUpcoming})
	if err != nil {
		h.fail(c, "list events", err)
		return
	}
	news, err := h.updates.Latest(ctx, "", homeUpdates)
	if err != nil {
		h.fail(c, "list updates", err)
		return
	}
	var featured *models.Event
	if len(upcoming) > 0 {
		featured = &upcoming[0]
	}
	response.OK(c, gin.H{
		"page":     h.content.Home,
		"featured": featured,
		"updates":  news,
	})
}

// About handles GET /about.
func (h *Handler) About(c *gin.Context) {
	response.OK(c, h.content.About)
}

// FAQ handles GET /faq.
func (h *Handler) FAQ(c *gin.Context) {
	response.OK(c, gin.H{"questions": h.content.FAQ})
}

// Programs handles GET /programs.
func (h *Handler) Programs(c *gin.Context) {
	response.OK(c, gin.H{"programs": h.content.Programs})
}

// Events handles GET /events: upcoming and past events side by side.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	upcoming, err := h.events.List(ctx, events.Filter{When: events.WhenUpcoming})
	if err != nil {
		h.fail(c, "list events", err)
		return
	}
	past, err := h.events.List(ctx, events.Filter{When: events.WhenPast})
	if err != nil {
		h.fail(c, "list events", err)
		return
	}
	response.OK(c, gin.H{"upcoming": upcoming, "past": past})
}

// Event handles GET /events/:code. The member field pre-fills the RSVP form.
func (h *Handler) Event(c *gin.Context) {
	e, err := h.events.Find(c.Request.Context(), c.Param("code"))
	if errors.Is(err, events.ErrEventNotFound) {
		response.NotFound(c, events.MessageNotFound)
		return
	}
	if err != nil {
		h.fail(c, "find event", err)
		return
	}
	response.OK(c, gin.H{"event": e, "member": h.viewer(c)})
}

// Knowledge handles GET /knowledge?q=&category=&type=.
func (h *Handler) Knowledge(c *gin.Context) {
	list, err := h.resources.Search(c.Request.Context(), knowledge.Query{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Type:     c.Query("type"),
		Member:   middleware.Claims(c) != nil,
	})
	if err != nil {
		h.fail(c, "search resources", err)
		return
	}
	response.OK(c, gin.H{"resources": list})
}

// Updates handles GET /updates?category=.
func (h *Handler) Updates(c *gin.Context) {
	list, err := h.updates.Latest(c.Request.Context(), c.Query("category"), 0)
	if err != nil {
		h.fail(c, "list updates", err)
		return
	}
	response.OK(c, gin.H{"updates": list})
}

// Login handles GET /login. Signed-in members never get here; the gate
// sends them to their profile.
func (h *Handler) Login(c *gin.Context) {
	response.OK(c, gin.H{"callback_url": c.Query("callbackUrl")})
}

// Join handles GET /join with the options of the registration form.
func (h *Handler) Join(c *gin.Context) {
	response.OK(c, gin.H{
		"callback_url": c.Query("callbackUrl"),
		"options":      h.content.Join,
	})
}

// Profile handles GET /profile. Anonymous visitors are sent to the login
// page with a callback back here.
func (h *Handler) Profile(c *gin.Context) {
	viewer := h.viewer(c)
	if viewer == nil {
		c.Redirect(http.StatusFound, "/login?callbackUrl="+url.QueryEscape("/profile"))
		return
	}
	response.OK(c, gin.H{"member": viewer, "options": h.content.Profile})
}

func (h *Handler) viewer(c *gin.Context) gin.H {
	claims := middleware.Claims(c)
	if claims == nil {
		return nil
	}
	return gin.H{
		"member_id":        claims.MemberID,
		"name":             claims.Name,
		"email":            claims.Email,
		"profile_complete": claims.ProfileComplete,
	}
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status, msg := store.UserMessage(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, zap.Error(err))
	}
	response.Status(c, status, msg)
}
