package capture

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiExtractor 通过 genai SDK 调用 Gemini 模型
type GeminiExtractor struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiExtractor 创建Gemini客户端
func NewGeminiExtractor(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("缺少Gemini API Key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Gemini客户端失败: %w", err)
	}
	return &GeminiExtractor{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

func (e *GeminiExtractor) Extract(ctx context.Context, img *CanonicalImage) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(Prompt),
		genai.NewPartFromBytes(img.Data, img.MIMEType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: e.maxTokens,
	})
	if err != nil {
		return "", &ExtractionError{Provider: providerGemini, Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &ExtractionError{Provider: providerGemini, Err: errors.New("响应中没有文本")}
	}
	return text, nil
}
