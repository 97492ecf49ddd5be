package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
)

const providerAnthropic = "anthropic"

// AnthropicExtractor 通过 langchaingo 调用 Claude 的视觉模型
type AnthropicExtractor struct {
	model     llms.Model
	maxTokens int
}

// NewAnthropicExtractor 创建Claude客户端
func NewAnthropicExtractor(apiKey, model string, maxTokens int) (*AnthropicExtractor, error) {
	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("创建Anthropic客户端失败: %w", err)
	}
	return NewAnthropicExtractorWithModel(llm, maxTokens), nil
}

// NewAnthropicExtractorWithModel 使用已有的 llms.Model
func NewAnthropicExtractorWithModel(model llms.Model, maxTokens int) *AnthropicExtractor {
	return &AnthropicExtractor{model: model, maxTokens: maxTokens}
}

func (e *AnthropicExtractor) Extract(ctx context.Context, img *CanonicalImage) (string, error) {
	// BinaryPart 由客户端负责Base64编码，这里传原始字节
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(Prompt),
				llms.BinaryPart(img.MIMEType, img.Data),
			},
		},
	}

	resp, err := e.model.GenerateContent(ctx, messages, llms.WithMaxTokens(e.maxTokens))
	if err != nil {
		return "", &ExtractionError{Provider: providerAnthropic, Err: err}
	}
	for _, choice := range resp.Choices {
		if choice.Content != "" {
			return choice.Content, nil
		}
	}
	return "", &ExtractionError{Provider: providerAnthropic, Err: errors.New("响应中没有文本")}
}
