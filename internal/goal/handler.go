package goal

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// PublicGoalResponse 不暴露用户ID
type PublicGoalResponse struct {
	ID        string   `json:"id"`
	Year      int      `json:"year"`
	Items     []string `json:"items"`
	CreatedAt string   `json:"createdAt"`
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrEmptyContent), errors.Is(err, ErrInvalidYear):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.L.Errorw("目标接口内部错误", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

// Create 处理 POST /goals
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	g, err := h.svc.Save(c.Request.Context(), user.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// List 处理 GET /goals
func (h *Handler) List(c *gin.Context) {
	goals, err := h.svc.List(c.Request.Context(), user.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if goals == nil {
		goals = []Goal{}
	}
	c.JSON(http.StatusOK, goals)
}

// Current 处理 GET /goals/current
func (h *Handler) Current(c *gin.Context) {
	g, err := h.svc.Current(c.Request.Context(), user.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Public 处理 GET /goals/public?year=&limit=
func (h *Handler) Public(c *gin.Context) {
	year, err := optionalInt(c, "year")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year 必须是整数"})
		return
	}
	limit, err := optionalInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是整数"})
		return
	}

	goals, err := h.svc.Public(c.Request.Context(), year, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]PublicGoalResponse, 0, len(goals))
	for i := range goals {
		resp = append(resp, PublicGoalResponse{
			ID:        goals[i].ID,
			Year:      goals[i].Year,
			Items:     goals[i].Items(),
			CreatedAt: goals[i].CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func optionalInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
