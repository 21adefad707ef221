package pages

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-community/backend/internal/events"
	"github.com/aether-community/backend/internal/knowledge"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/internal/store/memory"
	"github.com/aether-community/backend/internal/updates"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*gin.Engine, *session.Cookies) {
	t.Helper()
	st := memory.New()
	st.PutEvent(models.Event{Code: "EV-PAST", Title: "Past Talk", StartsAt: now.Add(-24 * time.Hour)})
	st.PutEvent(models.Event{Code: "EV-NEXT", Title: "Next Workshop", StartsAt: now.Add(24 * time.Hour)})
	st.PutEvent(models.Event{Code: "EV-LATER", Title: "Later Meetup", StartsAt: now.Add(72 * time.Hour)})
	st.PutResource(models.Resource{ID: "r1", Title: "Studio Archive", Access: models.AccessMembersOnly, Link: "https://example.com/archive", DateAdded: now})
	for i, d := range []time.Duration{1, 2, 3, 4} {
		st.PutUpdate(models.UpdatePost{ID: string(rune('a' + i)), Title: "Post", Date: now.Add(-d * time.Hour)})
	}

	content, err := LoadContent()
	require.NoError(t, err)
	ev := events.NewService(st, nil, nil)
	ev.SetClock(func() time.Time { return now })
	h := NewHandler(content, ev, knowledge.NewCatalog(st), updates.NewFeed(st), nil)

	cookies := session.NewCookies(session.NewManager("test-secret", time.Hour), "", false)
	r := gin.New()
	r.Use(middleware.Session(cookies))
	h.Register(r)
	return r, cookies
}

func memberCookie(t *testing.T, cookies *session.Cookies, complete bool) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	m := &models.Member{Code: "AX-0042", FullName: "Jane Doe", Email: "jane@example.com", ProfileComplete: complete}
	require.NoError(t, cookies.Set(c, m))
	return w.Result().Cookies()[0]
}

func get(t *testing.T, r http.Handler, path string, cookie *http.Cookie) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body envelope
	if w.Code < http.StatusMultipleChoices || w.Code >= http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestLoadContent(t *testing.T) {
	c, err := LoadContent()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Home.Title)
	assert.Len(t, c.About.Values, 5)
	assert.Len(t, c.Programs, 2)
	assert.Contains(t, c.Join.ProfessionalLevels, "Student")
	require.NotEmpty(t, c.FAQ)
	assert.Equal(t, "How do I join Aether?", c.FAQ[0].Question)
}

func TestParseContent_Invalid(t *testing.T) {
	_, err := ParseContent([]byte("home: [unclosed"))
	assert.Error(t, err)
}

func TestHome(t *testing.T) {
	r, _ := setup(t)
	w, body := get(t, r, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Page     Home                `json:"page"`
		Featured *models.Event       `json:"featured"`
		Updates  []models.UpdatePost `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.NotNil(t, data.Featured)
	assert.Equal(t, "EV-NEXT", data.Featured.Code)
	assert.Len(t, data.Updates, homeUpdates)
	assert.NotEmpty(t, data.Page.Features)
}

func TestEvents(t *testing.T) {
	r, _ := setup(t)
	w, body := get(t, r, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Upcoming []models.Event `json:"upcoming"`
		Past     []models.Event `json:"past"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Len(t, data.Upcoming, 2)
	assert.Equal(t, "EV-NEXT", data.Upcoming[0].Code)
	require.Len(t, data.Past, 1)
	assert.Equal(t, "EV-PAST", data.Past[0].Code)
}

func TestEvent(t *testing.T) {
	r, cookies := setup(t)

	w, body := get(t, r, "/events/EV-NEXT", memberCookie(t, cookies, true))
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Event  models.Event   `json:"event"`
		Member map[string]any `json:"member"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "Next Workshop", data.Event.Title)
	assert.Equal(t, "AX-0042", data.Member["member_id"])

	w, body = get(t, r, "/events/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, events.MessageNotFound, body.Message)
}

func TestKnowledge_HidesMembersOnlyLinks(t *testing.T) {
	r, cookies := setup(t)

	decode := func(body envelope) []models.Resource {
		var data struct {
			Resources []models.Resource `json:"resources"`
		}
		require.NoError(t, json.Unmarshal(body.Data, &data))
		require.Len(t, data.Resources, 1)
		return data.Resources
	}

	_, body := get(t, r, "/knowledge", nil)
	assert.Empty(t, decode(body)[0].Link)

	_, body = get(t, r, "/knowledge", memberCookie(t, cookies, true))
	assert.Equal(t, "https://example.com/archive", decode(body)[0].Link)
}

func TestProfile(t *testing.T) {
	r, cookies := setup(t)

	w, _ := get(t, r, "/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fprofile", w.Header().Get("Location"))

	w, body := get(t, r, "/profile", memberCookie(t, cookies, false))
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Member  map[string]any `json:"member"`
		Options ProfileOptions `json:"options"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, false, data.Member["profile_complete"])
	assert.Contains(t, data.Options.Interests, "Architecture")
}

func TestGateOnPages(t *testing.T) {
	r, cookies := setup(t)
	complete := memberCookie(t, cookies, true)
	incomplete := memberCookie(t, cookies, false)

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		want   int
	}{
		{"anonymous about", "/about", nil, http.StatusOK},
		{"anonymous join", "/join", nil, http.StatusOK},
		{"member login", "/login", complete, http.StatusFound},
		{"member join", "/join?callbackUrl=/events", complete, http.StatusFound},
		{"complete member faq", "/faq", complete, http.StatusOK},
		{"incomplete member programs", "/programs", incomplete, http.StatusFound},
		{"incomplete member updates", "/updates", incomplete, http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := get(t, r, tt.path, tt.cookie)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusFound {
				assert.Equal(t, "/profile", w.Header().Get("Location"))
			}
		})
	}
}
