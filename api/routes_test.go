package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/capture"
	"github.com/SlpAus/omikuji-record-backend/internal/goal"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/platform/startup"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/stats"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/SlpAus/omikuji-record-backend/pkg/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExtractor struct{}

func (staticExtractor) Extract(ctx context.Context, img *capture.CanonicalImage) (string, error) {
	return `{"result":"吉"}`, nil
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, token.SetSecretKey("test-secret"))

	db, err := database.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, startup.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	recordStore := record.NewGormStore(db)
	statsSvc := stats.NewService(recordStore, rdb)
	limiter := usage.NewLimiter(usage.NewRedisStore(rdb, db), 10, time.UTC)

	r := NewRouter(config.ServerConfig{
		Cors:        config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		MaxUploadMB: 20,
	})
	SetupRoutes(r, Handlers{
		Capture:      capture.NewHandler(capture.NewService(limiter, staticExtractor{}, time.Second), 20),
		CaptureGuard: usage.NewIPLimiter(rdb, 1, time.Hour).Middleware(),
		Usage:        usage.NewHandler(limiter),
		Records:      record.NewHandler(record.NewService(recordStore, statsSvc)),
		Stats:        stats.NewHandler(statsSvc),
		Goals:        goal.NewHandler(goal.NewService(goal.NewGormStore(db), time.UTC)),
	})
	return r
}

func send(r *gin.Engine, method, path string, cookie *http.Cookie, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == user.CookieName {
			return c
		}
	}
	t.Fatal("response did not set the user cookie")
	return nil
}

func TestRoutes_IdentityAndRecords(t *testing.T) {
	r := newTestServer(t)

	w := send(r, http.MethodGet, "/api/usage", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"limit":10,"remaining":10}`, w.Body.String())
	cookie := userCookie(t, w)

	w = send(r, http.MethodPost, "/api/records", cookie, gin.H{"date": "2025-01-01", "outcome": "大吉"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodGet, "/api/stats", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s stats.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Total)

	// 另一个用户看不到这条记录
	w = send(r, http.MethodGet, "/api/records", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Records []record.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list.Records)

	w = send(r, http.MethodGet, "/api/records/month/2025-01", cookie, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_ForgedCookieGetsNewIdentity(t *testing.T) {
	r := newTestServer(t)

	forged := &http.Cookie{Name: user.CookieName, Value: "01890a5d-ac96-774b-bcce-b302099a8057.forged"}
	w := send(r, http.MethodGet, "/api/goals", forged, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, forged.Value, userCookie(t, w).Value)
}

func TestRoutes_Goals(t *testing.T) {
	r := newTestServer(t)

	w := send(r, http.MethodPost, "/api/goals", nil, gin.H{"items": []string{"健康第一"}, "isPublic": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cookie := userCookie(t, w)

	w = send(r, http.MethodGet, "/api/goals/current", cookie, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/api/goals/public", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "健康第一")
}

func TestRoutes_Healthz(t *testing.T) {
	r := newTestServer(t)
	w := send(r, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	_, hasCookie := w.Header()["Set-Cookie"]
	assert.False(t, hasCookie)
}

func TestRoutes_CaptureGuardedByIP(t *testing.T) {
	r := newTestServer(t)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 2, 2))))

	upload := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("image", "slip.png")
		require.NoError(t, err)
		_, err = fw.Write(img.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/capture", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.RemoteAddr = "198.51.100.9:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"outcome":"吉"`)

	// 新的cookie也绕不过IP限制
	assert.Equal(t, http.StatusTooManyRequests, upload().Code)
}
