package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-community/backend/internal/models"
)

func member() *models.Member {
	return &models.Member{Code: "AX-0042", FullName: "Jane Doe", Email: "jane@example.com"}
}

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret-1", time.Hour)
	token, err := m.Generate(member())
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "AX-0042", claims.MemberID)
	assert.Equal(t, "Jane Doe", claims.Name)
	assert.False(t, claims.ProfileComplete)
}

func TestManager_RejectsOtherSecret(t *testing.T) {
	token, err := NewManager("secret-1", time.Hour).Generate(member())
	require.NoError(t, err)

	_, err = NewManager("secret-2", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("secret-1", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	token, err := m.Generate(member())
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsNoneAlg(t *testing.T) {
	claims := Claims{MemberID: "AX-0001", RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("secret-1", time.Hour).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCookies_SetReadClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cookies := NewCookies(NewManager("secret-1", 7*24*time.Hour), "", true)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	require.NoError(t, cookies.Set(c, member()))

	resp := w.Result()
	require.Len(t, resp.Cookies(), 1)
	set := resp.Cookies()[0]
	assert.Equal(t, DefaultCookieName, set.Name)
	assert.True(t, set.HttpOnly)
	assert.True(t, set.Secure)
	assert.Equal(t, "/", set.Path)
	assert.Equal(t, 7*24*60*60, set.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, set.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(set)
	claims := cookies.Read(req)
	require.NotNil(t, claims)
	assert.Equal(t, "AX-0042", claims.MemberID)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	cookies.Clear(c)
	cleared := w.Result().Cookies()[0]
	assert.Equal(t, -1, cleared.MaxAge)
	assert.Empty(t, cleared.Value)
}

func TestCookies_ReadTampered(t *testing.T) {
	cookies := NewCookies(NewManager("secret-1", time.Hour), "", false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "not-a-jwt"})
	assert.Nil(t, cookies.Read(req))

	assert.Nil(t, cookies.Read(httptest.NewRequest(http.MethodGet, "/", nil)))
}
