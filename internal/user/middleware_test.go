package user

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SlpAus/omikuji-record-backend/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(EnsureUserCookieMiddleware())
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	return r
}

func TestEnsureUserCookie_IssuesNewID(t *testing.T) {
	require.NoError(t, token.SetSecretKey("secret"))
	r := newRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	require.Equal(t, http.StatusOK, w.Code)
	userID := w.Body.String()
	assert.True(t, IsValidUUID(userID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	value, ok := token.Verify(cookies[0].Value)
	require.True(t, ok)
	assert.Equal(t, userID, value)
}

func TestEnsureUserCookie_KeepsValidCookie(t *testing.T) {
	require.NoError(t, token.SetSecretKey("secret"))
	r := newRouter()
	userID, err := CreateProvisionalUser()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token.Sign(userID)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, userID, w.Body.String())
	assert.Empty(t, w.Result().Cookies())
}

func TestEnsureUserCookie_ReplacesForgedCookie(t *testing.T) {
	require.NoError(t, token.SetSecretKey("secret"))
	r := newRouter()

	forged := "0190b5c2-0000-7000-8000-000000000001.c2lnbmF0dXJl"
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: forged})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.NotEqual(t, "0190b5c2-0000-7000-8000-000000000001", w.Body.String())
	assert.Len(t, w.Result().Cookies(), 1)
}
