// Package updates serves the community news feed.
package updates

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/response"
)

// MaxLimit caps the number of posts returned in one call.
const MaxLimit = 50

// Feed reads news posts.
type Feed struct {
	store store.Updates
}

// NewFeed creates a feed over st.
func NewFeed(st store.Updates) *Feed {
	return &Feed{store: st}
}

// Latest returns posts in category (all when empty), newest first, at most
// limit of them. A limit outside 1..MaxLimit means MaxLimit.
func (f *Feed) Latest(ctx context.Context, category string, limit int) ([]models.UpdatePost, error) {
	all, err := f.store.ListUpdates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list updates: %w", err)
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	out := make([]models.UpdatePost, 0, len(all))
	for _, p := range all {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Handler handles news feed HTTP endpoints.
type Handler struct {
	feed   *Feed
	logger *zap.Logger
}

// NewHandler creates an updates handler.
func NewHandler(feed *Feed, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{feed: feed, logger: logger}
}

// List handles GET /api/updates?category=&limit=.
func (h *Handler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive number")
			return
		}
		limit = n
	}
	list, err := h.feed.Latest(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		status, msg := store.UserMessage(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("list updates", zap.Error(err))
		}
		response.Status(c, status, msg)
		return
	}
	response.OK(c, list)
}
