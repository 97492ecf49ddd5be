package stats

import (
	"net/http"

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

// GetStats 处理 GET /stats
func (h *Handler) GetStats(c *gin.Context) {
	s, err := h.svc.ForUser(c.Request.Context(), user.CurrentUserID(c))
	if err != nil {
		logger.L.Errorw("计算统计失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, s)
}
