package usage

import (
	"errors"
	"net/http"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 提供额度查询接口
type Handler struct {
	limiter *Limiter
}

func NewHandler(limiter *Limiter) *Handler {
	return &Handler{limiter: limiter}
}

// GetUsage 处理 GET /usage
func (h *Handler) GetUsage(c *gin.Context) {
	remaining, err := h.limiter.Remaining(c.Request.Context(), user.CurrentUserID(c))
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		logger.L.Errorw("查询识别额度失败", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"limit":     h.limiter.Limit(),
		"remaining": remaining,
	})
}
