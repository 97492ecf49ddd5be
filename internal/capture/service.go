package capture

import (
	"context"
	"time"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/logger"
	"github.com/SlpAus/omikuji-record-backend/internal/record"
	"github.com/SlpAus/omikuji-record-backend/internal/usage"
)

// DefaultTimeout 是单次识别请求的默认超时
const DefaultTimeout = 60 * time.Second

// QuotaConsumer 是识别前扣减额度的接口，由 usage.Limiter 实现
type QuotaConsumer interface {
	TryConsume(ctx context.Context, userID string) (bool, error)
	Now() time.Time
}

// Draft 是识别完成后返回给用户编辑的草稿
type Draft struct {
	Date       string            `json:"date"`
	Outcome    record.Outcome    `json:"outcome"`
	Categories record.Categories `json:"categories"`
	// OutcomeDetected 表示等级来自识别结果而不是默认值
	OutcomeDetected bool `json:"outcomeDetected"`
}

// Service 编排 额度检查 → 图片预处理 → 识别 → 结果解析
type Service struct {
	quota     QuotaConsumer
	extractor Extractor
	timeout   time.Duration
}

func NewService(quota QuotaConsumer, extractor Extractor, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{quota: quota, extractor: extractor, timeout: timeout}
}

// Capture 处理一张签文照片并返回草稿。
// 额度在任何网络调用之前扣减；请求一旦发出就不再跟随调用方取消，避免已扣减的额度白白浪费。
func (s *Service) Capture(ctx context.Context, userID string, raw []byte) (*Draft, error) {
	ok, err := s.quota.TryConsume(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, usage.ErrQuotaExceeded
	}

	img, err := NormalizeImage(ctx, raw)
	if err != nil {
		return nil, err
	}

	extractCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.extractor.Extract(extractCtx, img)
	if err != nil {
		logger.L.Warnw("识别失败", "userID", userID, "error", err)
		return nil, err
	}
	logger.L.Infow("识别完成", "userID", userID, "latency", time.Since(start).String(), "bytes", len(img.Data))

	extraction, err := Normalize(text)
	if err != nil {
		logger.L.Warnw("识别结果无法解析", "userID", userID, "error", err, "raw", text)
		return nil, err
	}

	draft := &Draft{
		Date:       s.quota.Now().Format(time.DateOnly),
		Outcome:    record.DefaultOutcome,
		Categories: record.Categories{},
	}
	extraction.ApplyTo(draft)
	draft.OutcomeDetected = extraction.Outcome != nil
	return draft, nil
}
