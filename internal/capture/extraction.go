package capture

import (
	"context"
	"fmt"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
)

// Prompt 是发给识别模型的固定指令
const Prompt = "この画像はおみくじです。おみくじの内容から項目とその内容を読み取って、以下のようなJSON形式で返してください：\n" +
	"{\n" +
	`  "result": "大吉",` + "\n" +
	`  "項目1": "内容1",` + "\n" +
	`  "項目2": "内容2",` + "\n" +
	"  ...\n" +
	"}\n" +
	"例：総運、願事、待人などの項目とその内容を抽出してください。\n" +
	"おみくじの吉凶（大吉、中吉、小吉、吉、末吉、凶、大凶のいずれか）は \"result\" キーに入れてください。\n" +
	"必ずJSONとして解析可能な形式で返してください。"

const (
	DefaultAnthropicModel = "claude-3-5-sonnet-20240620"
	DefaultGeminiModel    = "gemini-2.0-flash"
	DefaultMaxTokens      = 1024
)

// Extractor 把规范化后的图片发送给识别模型，返回第一段文本
type Extractor interface {
	Extract(ctx context.Context, img *CanonicalImage) (string, error)
}

// NewExtractor 按配置创建识别客户端
func NewExtractor(ctx context.Context, cfg config.ExtractionConfig) (Extractor, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	switch cfg.Provider {
	case "anthropic":
		model := cfg.Model
		if model == "" {
			model = DefaultAnthropicModel
		}
		return NewAnthropicExtractor(cfg.APIKey, model, maxTokens)
	case "gemini":
		model := cfg.Model
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGeminiExtractor(ctx, cfg.APIKey, model, maxTokens)
	default:
		return nil, fmt.Errorf("不支持的识别服务: %q", cfg.Provider)
	}
}
