// Package knowledge serves the knowledge hub: articles, videos and other
// resources with text search and category and type filters.
package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/response"
)

// Query narrows the resource list. Empty fields match everything.
type Query struct {
	Text     string
	Category string
	Type     string
	// Member is true for signed-in requests; members-only links are hidden otherwise.
	Member bool
}

// Catalog searches knowledge resources.
type Catalog struct {
	store store.Resources
}

// NewCatalog creates a catalog over st.
func NewCatalog(st store.Resources) *Catalog {
	return &Catalog{store: st}
}

// Search returns resources matching q, newest first.
func (c *Catalog) Search(ctx context.Context, q Query) ([]models.Resource, error) {
	all, err := c.store.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]models.Resource, 0, len(all))
	for _, r := range all {
		if q.Category != "" && !strings.EqualFold(r.Category, q.Category) {
			continue
		}
		if q.Type != "" && !strings.EqualFold(r.Type, q.Type) {
			continue
		}
		if text != "" && !matches(r, text) {
			continue
		}
		if !q.Member && r.Access == models.AccessMembersOnly {
			r.Link = ""
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	return out, nil
}

func matches(r models.Resource, text string) bool {
	fields := append([]string{r.Title, r.Description, r.Author, r.Category}, r.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), text) {
			return true
		}
	}
	return false
}

// Handler handles knowledge hub HTTP endpoints.
type Handler struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewHandler creates a knowledge handler.
func NewHandler(catalog *Catalog, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{catalog: catalog, logger: logger}
}

// List handles GET /api/resources?q=&category=&type=.
func (h *Handler) List(c *gin.Context) {
	list, err := h.catalog.Search(c.Request.Context(), Query{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Type:     c.Query("type"),
		Member:   middleware.Claims(c) != nil,
	})
	if err != nil {
		status, msg := store.UserMessage(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("list resources", zap.Error(err))
		}
		response.Status(c, status, msg)
		return
	}
	response.OK(c, list)
}
