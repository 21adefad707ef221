package events

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/response"
	"github.com/aether-community/backend/pkg/validation"
)

// User-facing messages.
const (
	MessageReserved = "Your spot has been reserved!"
	MessageNotFound = "Event not found."
)

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /api/events?when=&type=&focus=.
func (h *Handler) List(c *gin.Context) {
	f := Filter{When: c.DefaultQuery("when", WhenUpcoming), Type: c.Query("type"), Focus: c.Query("focus")}
	if !f.Valid() {
		response.BadRequest(c, "when must be one of: upcoming, past, all")
		return
	}
	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /api/events/:code.
func (h *Handler) Get(c *gin.Context) {
	e, err := h.svc.Find(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, e)
}

// RSVP handles POST /api/events/:code/rsvp. A signed-in member's code is
// used when the form does not carry one.
func (h *Handler) RSVP(c *gin.Context) {
	var in RSVPInput
	if err := c.ShouldBindJSON(&in); err != nil {
		if fields := validation.FieldMessages(err); fields != nil {
			response.ValidationFailed(c, validation.Summary, fields)
			return
		}
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if claims := middleware.Claims(c); claims != nil && in.MemberCode == "" {
		in.MemberCode = claims.MemberID
	}

	r, err := h.svc.RSVP(c.Request.Context(), c.Param("code"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Message(c, http.StatusCreated, MessageReserved, gin.H{
		"rsvp_id":    r.ID,
		"event_code": r.EventCode,
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, ErrEventNotFound) {
		response.NotFound(c, MessageNotFound)
		return
	}
	if fields := membership.FieldErrors(err); fields != nil {
		response.ValidationFailed(c, validation.Summary, fields)
		return
	}
	status, msg := store.UserMessage(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("events request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	response.Status(c, status, msg)
}
