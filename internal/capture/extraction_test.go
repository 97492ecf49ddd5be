package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/SlpAus/omikuji-record-backend/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestAnthropicExtractor_SendsPromptAndImage(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{
		{Content: ""},
		{Content: `{"result":"吉"}`},
	}}}
	ext := NewAnthropicExtractorWithModel(model, 512)

	img := &CanonicalImage{Data: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}
	text, err := ext.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, `{"result":"吉"}`, text)
	assert.Equal(t, 512, model.opts.MaxTokens)

	require.Len(t, model.messages, 1)
	msg := model.messages[0]
	assert.Equal(t, llms.ChatMessageTypeHuman, msg.Role)
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, llms.TextContent{Text: Prompt}, msg.Parts[0])
	assert.Equal(t, llms.BinaryContent{MIMEType: "image/jpeg", Data: img.Data}, msg.Parts[1])
}

func TestAnthropicExtractor_Errors(t *testing.T) {
	img := &CanonicalImage{Data: []byte{1}, MIMEType: "image/jpeg"}

	ext := NewAnthropicExtractorWithModel(&fakeModel{err: errors.New("rate limited")}, 100)
	_, err := ext.Extract(context.Background(), img)
	assert.ErrorIs(t, err, ErrExtraction)

	var extErr *ExtractionError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "anthropic", extErr.Provider)

	ext = NewAnthropicExtractorWithModel(&fakeModel{resp: &llms.ContentResponse{}}, 100)
	_, err = ext.Extract(context.Background(), img)
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(context.Background(), config.ExtractionConfig{Provider: "openai"})
	assert.Error(t, err)
}
