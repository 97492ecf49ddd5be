package goal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/database"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *GormStore) {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	store := NewGormStore(db)
	svc := NewService(store, time.UTC).WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	return svc, store
}

func TestService_SaveAndCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Current(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := svc.Save(ctx, "u1", Input{Content: "早起き\n\n 読書 "})
	require.NoError(t, err)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, "早起き\n読書", first.Content)

	second, err := svc.Save(ctx, "u1", Input{Items: []string{"運動", " ", "貯金"}, IsPublic: true})
	require.NoError(t, err)

	cur, err := svc.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.ID)
	assert.Equal(t, []string{"運動", "貯金"}, cur.Items())
	assert.True(t, cur.IsPublic)
}

func TestService_SaveValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", Input{Content: "  \n "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = svc.Save(ctx, "u1", Input{Year: 12, Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidYear)
}

func TestGormStore_Ordering(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "u1", Input{Year: 2024, Content: "a"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u1", Input{Year: 2025, Content: "b"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u1", Input{Year: 2024, Content: "c"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u2", Input{Year: 2025, Content: "other"})
	require.NoError(t, err)

	goals, err := store.ListByUser(ctx, "u1")
	require.NoError(t, err)
	var contents []string
	for _, g := range goals {
		contents = append(contents, g.Content)
	}
	assert.Equal(t, []string{"b", "c", "a"}, contents)
}

func TestGormStore_ListPublicByYear(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Save(ctx, "u1", Input{Year: 2025, Content: "公開", IsPublic: true})
		require.NoError(t, err)
	}
	_, err := svc.Save(ctx, "u2", Input{Year: 2025, Content: "非公開"})
	require.NoError(t, err)
	last, err := svc.Save(ctx, "u3", Input{Year: 2025, Content: "最新", IsPublic: true})
	require.NoError(t, err)
	_, err = svc.Save(ctx, "u4", Input{Year: 2024, Content: "去年", IsPublic: true})
	require.NoError(t, err)

	goals, err := store.ListPublicByYear(ctx, 2025, 0)
	require.NoError(t, err)
	require.Len(t, goals, DefaultPublicLimit)
	assert.Equal(t, last.ID, goals[0].ID)
	for _, g := range goals {
		assert.True(t, g.IsPublic)
		assert.Equal(t, 2025, g.Year)
	}

	goals, err = svc.Public(ctx, 2024, 5)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "去年", goals[0].Content)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	h := NewHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(user.UserIDKey, c.GetHeader("X-Test-User")) })
	r.POST("/goals", h.Create)
	r.GET("/goals", h.List)
	r.GET("/goals/current", h.Current)
	r.GET("/goals/public", h.Public)

	do := func(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			_ = json.NewEncoder(&buf).Encode(body)
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/goals/current", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(http.MethodPost, "/goals", "u1", gin.H{"items": []string{"旅行", "資格"}, "isPublic": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(http.MethodPost, "/goals", "u1", gin.H{"content": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodGet, "/goals/current", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cur Goal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cur))
	assert.Equal(t, "旅行\n資格", cur.Content)

	w = do(http.MethodGet, "/goals", "u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(http.MethodGet, "/goals/public?year=2025&limit=3", "u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public []PublicGoalResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	require.Len(t, public, 1)
	assert.Equal(t, []string{"旅行", "資格"}, public[0].Items)
	assert.NotContains(t, w.Body.String(), "u1")

	w = do(http.MethodGet, "/goals/public?limit=abc", "u2", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
