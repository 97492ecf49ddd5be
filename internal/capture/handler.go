package capture

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
	"github.com/SlpAus/omikuji-record-backend/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var errImageTooLarge = errors.New("图片过大")

// Handler 提供拍照识别接口
type Handler struct {
	svc      *Service
	maxBytes int64
}

func NewHandler(svc *Service, maxUploadMB int64) *Handler {
	return &Handler{svc: svc, maxBytes: maxUploadMB << 20}
}

// dataURIRequest 是 JSON 形式的上传，image 为 data URI 或裸Base64
type dataURIRequest struct {
	Image string `json:"image" binding:"required"`
}

// Capture 处理 POST /capture。
// 支持 multipart 表单字段 image，或 JSON {"image": "data:image/jpeg;base64,..."}
func (h *Handler) Capture(c *gin.Context) {
	var (
		raw    []byte
		status int
		err    error
	)
	if c.ContentType() == binding.MIMEJSON {
		raw, status, err = h.readDataURI(c)
	} else {
		raw, status, err = h.readUpload(c)
	}
	if err != nil {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	draft, err := h.svc.Capture(c.Request.Context(), user.CurrentUserID(c), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, int, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("缺少图片文件: %w", err)
	}
	if fileHeader.Size > h.maxBytes {
		return nil, http.StatusRequestEntityTooLarge, errImageTooLarge
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("无法读取图片: %w", err)
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, h.maxBytes))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("无法读取图片: %w", err)
	}
	return raw, 0, nil
}

func (h *Handler) readDataURI(c *gin.Context) ([]byte, int, error) {
	// Base64 膨胀约 4/3，另留一些给 JSON 包装
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes/3*4+4096)

	var req dataURIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, errImageTooLarge
		}
		return nil, http.StatusBadRequest, fmt.Errorf("请求格式错误: %w", err)
	}
	raw, err := DecodeDataURI(req.Image)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if int64(len(raw)) > h.maxBytes {
		return nil, http.StatusRequestEntityTooLarge, errImageTooLarge
	}
	return raw, 0, nil
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usage.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, usage.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrMalformedExtraction):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrExtraction):
		c.JSON(http.StatusBadGateway, gin.H{"error": ErrExtraction.Error()})
	default:
		logger.L.Errorw("识别接口内部错误", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}
