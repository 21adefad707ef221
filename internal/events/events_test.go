package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/middleware"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/session"
	"github.com/aether-community/backend/internal/store/memory"
)

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type fakeConfirmer struct {
	sent []notify.RSVPConfirmationEmail
	err  error
}

func (f *fakeConfirmer) SendRSVPConfirmation(_ context.Context, p notify.RSVPConfirmationEmail) error {
	f.sent = append(f.sent, p)
	return f.err
}

func newService(t *testing.T) (*Service, *memory.Store, *fakeConfirmer) {
	t.Helper()
	st := memory.New()
	st.PutEvent(models.Event{Code: "EV-PAST", Title: "Past Talk", Type: models.EventTypeTalk, Focus: "AI", StartsAt: now.Add(-48 * time.Hour), Platform: "Zoom"})
	st.PutEvent(models.Event{Code: "EV-OLD", Title: "Older Talk", Type: models.EventTypeTalk, Focus: "Web3", StartsAt: now.Add(-96 * time.Hour)})
	st.PutEvent(models.Event{Code: "EV-SOON", Title: "Soon Workshop", Type: models.EventTypeWorkshop, Focus: "AI", StartsAt: now.Add(24 * time.Hour), Platform: "Google Meet", Location: "Online"})
	st.PutEvent(models.Event{Code: "EV-LATER", Title: "Later Meetup", Type: models.EventTypeMeetup, Focus: "General", StartsAt: now.Add(72 * time.Hour)})
	c := &fakeConfirmer{}
	svc := NewService(st, c, nil)
	svc.SetClock(func() time.Time { return now })
	return svc, st, c
}

func codes(list []models.Event) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Code)
	}
	return out
}

func TestList(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"upcoming", Filter{When: WhenUpcoming}, []string{"EV-SOON", "EV-LATER"}},
		{"past newest first", Filter{When: WhenPast}, []string{"EV-PAST", "EV-OLD"}},
		{"all", Filter{When: WhenAll}, []string{"EV-OLD", "EV-PAST", "EV-SOON", "EV-LATER"}},
		{"by type", Filter{When: WhenAll, Type: "talk"}, []string{"EV-OLD", "EV-PAST"}},
		{"by focus", Filter{When: WhenUpcoming, Focus: "ai"}, []string{"EV-SOON"}},
		{"no match", Filter{Type: "Challenge"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, codes(list))
		})
	}
}

func TestRSVP_LinksMemberByEmail(t *testing.T) {
	svc, st, confirmer := newService(t)
	_, err := st.Create(context.Background(), &models.Member{Code: "AX-0042", Email: "jane@example.com", FullName: "Jane"})
	require.NoError(t, err)

	r, err := svc.RSVP(context.Background(), "EV-SOON", RSVPInput{FullName: "Jane Doe", Email: "Jane@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "AX-0042", r.MemberCode)
	assert.Equal(t, "Google Meet", r.Platform)

	rsvps := st.RSVPs()
	require.Len(t, rsvps, 1)
	assert.Equal(t, "EV-SOON", rsvps[0].EventCode)
	assert.Equal(t, "jane@example.com", rsvps[0].Email)

	require.Len(t, confirmer.sent, 1)
	sent := confirmer.sent[0]
	assert.Equal(t, "Soon Workshop", sent.EventTitle)
	assert.Equal(t, "Online", sent.Location)
	assert.Contains(t, sent.CalendarLink, "calendar.google.com")
}

func TestRSVP_LinksMemberByCode(t *testing.T) {
	svc, st, _ := newService(t)
	_, err := st.Create(context.Background(), &models.Member{Code: "AX-0042", Email: "jane@example.com"})
	require.NoError(t, err)

	r, err := svc.RSVP(context.Background(), "EV-SOON", RSVPInput{FullName: "Jane Doe", Email: "other@example.com", MemberCode: "ax-0042"})
	require.NoError(t, err)
	assert.Equal(t, "AX-0042", r.MemberCode)
}

func TestRSVP_Anonymous(t *testing.T) {
	svc, st, _ := newService(t)
	r, err := svc.RSVP(context.Background(), "EV-SOON", RSVPInput{FullName: "Guest", Email: "guest@example.com", MemberCode: "AX-9999"})
	require.NoError(t, err)
	assert.Empty(t, r.MemberCode)
	assert.Len(t, st.RSVPs(), 1)
}

func TestRSVP_UnknownEvent(t *testing.T) {
	svc, st, confirmer := newService(t)
	_, err := svc.RSVP(context.Background(), "EV-NOPE", RSVPInput{FullName: "Guest", Email: "guest@example.com"})
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Empty(t, st.RSVPs())
	assert.Empty(t, confirmer.sent)
}

func TestRSVP_ConfirmationFailureIsNotFatal(t *testing.T) {
	svc, st, confirmer := newService(t)
	confirmer.err = errors.New("smtp down")

	_, err := svc.RSVP(context.Background(), "EV-SOON", RSVPInput{FullName: "Guest", Email: "guest@example.com"})
	require.NoError(t, err)
	assert.Len(t, st.RSVPs(), 1)
}

func TestRSVP_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.RSVP(context.Background(), "EV-SOON", RSVPInput{FullName: "G", Email: "nope"})
	require.ErrorIs(t, err, membership.ErrValidation)
	fields := membership.FieldErrors(err)
	assert.Contains(t, fields, "full_name")
	assert.Contains(t, fields, "email")
}

func newRouter(t *testing.T) (*gin.Engine, *memory.Store, *session.Cookies) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, st, _ := newService(t)
	h := NewHandler(svc, nil)
	cookies := session.NewCookies(session.NewManager("test-secret", time.Hour), "", false)
	r := gin.New()
	r.Use(middleware.Session(cookies))
	r.GET("/api/events", h.List)
	r.GET("/api/events/:code", h.Get)
	r.POST("/api/events/:code/rsvp", h.RSVP)
	return r, st, cookies
}

func serve(r http.Handler, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_List(t *testing.T) {
	r, _, _ := newRouter(t)

	w := serve(r, http.MethodGet, "/api/events", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"EV-SOON", "EV-LATER"}, codes(body.Data))

	w = serve(r, http.MethodGet, "/api/events?when=someday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Get(t *testing.T) {
	r, _, _ := newRouter(t)

	w := serve(r, http.MethodGet, "/api/events/EV-SOON", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Soon Workshop"`)

	w = serve(r, http.MethodGet, "/api/events/EV-NOPE", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), MessageNotFound)
}

func TestHandler_RSVP(t *testing.T) {
	r, st, cookies := newRouter(t)
	_, err := st.Create(context.Background(), &models.Member{Code: "AX-0042", Email: "jane@example.com"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	require.NoError(t, cookies.Set(c, &models.Member{Code: "AX-0042", FullName: "Jane"}))
	cookie := rec.Result().Cookies()[0]

	w := serve(r, http.MethodPost, "/api/events/EV-SOON/rsvp", map[string]string{
		"full_name": "Jane Doe", "email": "work@example.com",
	}, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), MessageReserved)
	require.Len(t, st.RSVPs(), 1)
	assert.Equal(t, "AX-0042", st.RSVPs()[0].MemberCode)

	w = serve(r, http.MethodPost, "/api/events/EV-NOPE/rsvp", map[string]string{
		"full_name": "Jane Doe", "email": "work@example.com",
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Event not found."`)
}
