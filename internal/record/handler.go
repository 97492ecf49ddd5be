package record

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 提供记录相关的HTTP接口
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// respondError 把领域错误映射为HTTP状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrInvalidOutcome),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrReservedCategory),
		errors.Is(err, ErrDuplicateCategory),
		errors.Is(err, ErrInvalidMonth):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.L.Errorw("记录接口内部错误", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

// Create 处理 POST /records
func (h *Handler) Create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	r, err := h.svc.Create(c.Request.Context(), user.CurrentUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// List 处理 GET /records?limit=
func (h *Handler) List(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是非负整数"})
			return
		}
		limit = n
	}
	records, err := h.svc.List(c.Request.Context(), user.CurrentUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Get 处理 GET /records/:id
func (h *Handler) Get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), user.CurrentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Update 处理 PATCH /records/:id
func (h *Handler) Update(c *gin.Context) {
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}
	r, err := h.svc.Update(c.Request.Context(), user.CurrentUserID(c), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Delete 处理 DELETE /records/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), user.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Month 处理 GET /records/month/:yearMonth?outcome=&location=&keyword=
func (h *Handler) Month(c *gin.Context) {
	ym, err := ParseYearMonth(c.Param("yearMonth"))
	if err != nil {
		respondError(c, err)
		return
	}
	var criteria Criteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "查询参数错误: " + err.Error()})
		return
	}
	view, err := h.svc.Month(c.Request.Context(), user.CurrentUserID(c), ym, criteria)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
